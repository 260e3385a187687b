package workspace

import (
	"context"
	"log/slog"

	"redline/internal/compose"
	"redline/internal/delivery"
	"redline/internal/logging"
	"redline/internal/notifications"
	"redline/internal/preview"
	"redline/internal/services"
	"redline/internal/staging"
)

// PreviewOptions configures a PreviewSession.
type PreviewOptions struct {
	Backend   Backend
	Notifier  delivery.Notifier
	Navigator delivery.Navigator
	Alerts    notifications.Service
	Logger    *slog.Logger
}

// PreviewSession is the context opened on a preview location. It shows the
// staged artifact and sends it.
type PreviewSession struct {
	token        staging.Token
	prefill      *preview.Once
	artifact     []byte
	pages        int
	orchestrator *delivery.Orchestrator
	notifier     delivery.Notifier
}

// OpenPreview resolves the token in location and loads the staged artifact.
func OpenPreview(ctx context.Context, location string, opts PreviewOptions) (*PreviewSession, error) {
	if opts.Backend == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "open preview", "backend is required", nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = delivery.NotifierFunc(func(delivery.Severity, string) {})
	}
	token, once, err := preview.ParsePreview(location)
	if err != nil {
		notifier.Notify(delivery.SeverityError, err.Error())
		return nil, err
	}
	artifact, err := staging.NewClient(opts.Backend, opts.Logger).Resolve(ctx, token)
	if err != nil {
		notifier.Notify(delivery.SeverityError, "This preview is no longer available: "+err.Error())
		return nil, err
	}
	pages, err := compose.New().PageCount(artifact)
	if err != nil {
		logging.NewComponentLogger(opts.Logger, "workspace").Debug("page count unavailable",
			logging.String(logging.FieldToken, string(token)),
			logging.Error(err),
		)
		pages = 0
	}
	return &PreviewSession{
		token:    token,
		prefill:  once,
		artifact: artifact,
		pages:    pages,
		notifier: notifier,
		orchestrator: delivery.New(delivery.Options{
			Backend:   opts.Backend,
			Notifier:  notifier,
			Navigator: opts.Navigator,
			Alerts:    opts.Alerts,
			Logger:    opts.Logger,
		}),
	}, nil
}

// Token returns the staged bundle token.
func (p *PreviewSession) Token() staging.Token { return p.token }

// Artifact returns the staged PDF.
func (p *PreviewSession) Artifact() []byte { return p.artifact }

// PageCount is zero when the artifact could not be inspected.
func (p *PreviewSession) PageCount() int { return p.pages }

// Prefill returns the send-dialog values on the first call only.
func (p *PreviewSession) Prefill() (preview.Prefill, bool) { return p.prefill.Consume() }

// Send delivers the staged bundle.
func (p *PreviewSession) Send(ctx context.Context, msg delivery.Message) (delivery.Outcome, error) {
	return p.orchestrator.Deliver(ctx, delivery.NewStagedSource(p.token, "", p.pages), msg)
}
