package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"redline/internal/api"
	"redline/internal/compose"
	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/notifications"
	"redline/internal/submissions"
)

// Severity grades a user-facing notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows toast-style notices to the user.
type Notifier interface {
	Notify(severity Severity, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(severity Severity, message string)

func (f NotifierFunc) Notify(severity Severity, message string) { f(severity, message) }

// Navigator moves the user to the submission registry after a full success.
type Navigator interface {
	ShowRegistry(ctx context.Context)
}

// Message is the user-entered part of a delivery.
type Message struct {
	To      string
	Subject string
	Body    string
	// RecordFailure asks the daemon to store a failed submission when its
	// SMTP step fails.
	RecordFailure bool
}

// Outcome describes a delivery that passed notify.
type Outcome struct {
	Email      api.EmailResponse
	Submission api.Submission
	// Recorded is false after a partial failure.
	Recorded bool
}

// Options configures an Orchestrator. Only Backend is required.
type Options struct {
	Backend   Backend
	Composer  *compose.Composer
	Notifier  Notifier
	Navigator Navigator
	// Alerts receives operator notifications for partial failures.
	Alerts notifications.Service
	Logger *slog.Logger
}

// Orchestrator runs deliveries. At most one runs at a time.
type Orchestrator struct {
	backend   Backend
	composer  *compose.Composer
	notifier  Notifier
	navigator Navigator
	alerts    notifications.Service
	logger    *slog.Logger

	inFlight atomic.Bool
}

// New builds an Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		backend:   opts.Backend,
		composer:  opts.Composer,
		notifier:  opts.Notifier,
		navigator: opts.Navigator,
		alerts:    opts.Alerts,
		logger:    logging.NewComponentLogger(opts.Logger, "delivery"),
	}
	if o.composer == nil {
		o.composer = compose.New()
	}
	if o.notifier == nil {
		o.notifier = NotifierFunc(func(Severity, string) {})
	}
	if o.alerts == nil {
		o.alerts = notifications.NewService(nil)
	}
	return o
}

// InFlight reports whether a delivery is running.
func (o *Orchestrator) InFlight() bool { return o.inFlight.Load() }

// Deliver validates, notifies, then persists. Once started it ignores
// cancellation of ctx and runs to completion.
func (o *Orchestrator) Deliver(ctx context.Context, src Source, msg Message) (Outcome, error) {
	if err := validate(src, msg); err != nil {
		o.notifier.Notify(SeverityError, err.Error())
		return Outcome{}, err
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		o.notifier.Notify(SeverityWarning, ErrInFlight.Error())
		return Outcome{}, ErrInFlight
	}
	defer o.inFlight.Store(false)

	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, o.logger).With(
		logging.String("source", src.Kind()),
		logging.String("recipient", msg.To),
	)
	email := api.EmailMessage{To: msg.To, Subject: msg.Subject, Body: msg.Body, RecordFailure: msg.RecordFailure}

	sent, err := src.notify(ctx, o.backend, email)
	if err != nil {
		terr := &TransportError{Phase: "notify", Err: err}
		logging.WarnWithContext(logger, "delivery notify failed", "delivery_notify_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the daemon and its [mail] settings"),
			logging.String(logging.FieldImpact, "email not sent; cart kept for retry"),
		)
		o.notifier.Notify(SeverityError, "Email was not sent: "+err.Error())
		return Outcome{}, terr
	}
	outcome := Outcome{Email: sent}
	logger.Info("delivery notified",
		logging.Int("recipients", sent.Recipients),
		logging.String("message_id", sent.MessageID),
		logging.String(logging.FieldEventType, "delivery_notified"),
	)

	record, err := o.persist(ctx, src, msg)
	if err != nil {
		partial := &PartialFailure{Recipient: msg.To, Err: err}
		logging.WarnWithContext(logger, "delivery succeeded, record-keeping failed", "delivery_partial_failure",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access on the daemon"),
			logging.String(logging.FieldImpact, "email delivered without a submission record"),
		)
		if alertErr := o.alerts.Publish(ctx, notifications.EventRecordFailed, notifications.Payload{
			"recipient": msg.To,
			"error":     err.Error(),
		}); alertErr != nil {
			logger.Debug("record-failed alert not sent", logging.Error(alertErr))
		}
		o.notifier.Notify(SeverityWarning, fmt.Sprintf("Email sent to %s, but the submission could not be recorded: %v", msg.To, err))
		return outcome, partial
	}
	outcome.Submission = record
	outcome.Recorded = true

	src.complete()
	logger.Info("delivery recorded",
		logging.Int64(logging.FieldSubmissionID, record.ID),
		logging.Int("pages", record.PageCount),
		logging.String(logging.FieldEventType, "delivery_recorded"),
	)
	if o.navigator != nil {
		o.navigator.ShowRegistry(ctx)
	}
	o.notifier.Notify(SeverityInfo, fmt.Sprintf("Sent to %s and recorded as submission #%d.", msg.To, record.ID))
	return outcome, nil
}

func (o *Orchestrator) persist(ctx context.Context, src Source, msg Message) (api.Submission, error) {
	artifact, err := src.assemble(ctx, o.backend, o.composer)
	if err != nil {
		return api.Submission{}, fmt.Errorf("assemble artifact: %w", err)
	}
	return o.backend.PersistSubmission(ctx, api.SubmissionUpload{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Status:    string(submissions.StatusEmailSent),
		Source:    src.Kind(),
		FileID:    src.FileID(),
		PageCount: src.PageCount(),
	}, artifact)
}

func validate(src Source, msg Message) error {
	if src == nil || src.Empty() {
		return &ValidationError{Field: "pages", Reason: "nothing to send"}
	}
	if strings.TrimSpace(msg.To) == "" {
		return &ValidationError{Field: "recipient", Reason: "recipient address is required"}
	}
	if _, err := mailer.ParseRecipients(msg.To); err != nil {
		return &ValidationError{Field: "recipient", Reason: fmt.Sprintf("%q is not a valid address", msg.To)}
	}
	return nil
}
