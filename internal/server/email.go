package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"redline/internal/api"
	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/notifications"
	"redline/internal/services"
	"redline/internal/submissions"
)

const attachmentName = "annotations.pdf"

// origin describes where a sent artifact came from. It fills the submission
// recorded after a send, or after a failed send the caller asked to record.
type origin struct {
	source    string
	fileID    string
	pageCount int
}

// sendEmail relays artifact to msg.To. It never persists a successful send;
// recording deliveries is the caller's second phase.
func (s *Server) sendEmail(ctx context.Context, msg api.EmailMessage, artifact []byte, rec origin) (api.EmailResponse, error) {
	if s.mailer == nil {
		return api.EmailResponse{}, services.Wrap(services.ErrConfiguration, "server", "send email", "mail.host is not configured", nil)
	}
	if _, err := mailer.ParseRecipients(msg.To); err != nil {
		return api.EmailResponse{}, err
	}

	receipt, err := s.mailer.Send(ctx, mailer.Message{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
		Attachments: []mailer.Attachment{{
			Name:        attachmentName,
			ContentType: "application/pdf",
			Data:        artifact,
		}},
	})
	if err != nil {
		logger := logging.WithContext(ctx, s.logger)
		logging.WarnWithContext(logger, "email relay failed", "email_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check [mail] settings and relay reachability"),
			logging.String(logging.FieldImpact, "recipient did not receive the annotated pages"),
		)
		_ = s.notifier.Publish(ctx, notifications.EventError, notifications.Payload{"context": "email", "error": err.Error()})
		if msg.RecordFailure {
			s.recordFailure(ctx, msg, artifact, rec, err)
		}
		return api.EmailResponse{}, err
	}
	return api.EmailResponse{Sent: true, Recipients: receipt.Recipients, MessageID: receipt.MessageID}, nil
}

// recordDelivery stores a submission and announces delivered ones. It is the
// record step shared by the persist API and the preview page.
func (s *Server) recordDelivery(ctx context.Context, in submissions.NewSubmission) (*submissions.Submission, error) {
	created, err := s.store.Create(ctx, in)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "persist submission failed", "submission_persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check database access in paths.data_dir"),
			logging.String(logging.FieldImpact, "delivered email has no submission record"),
		)
		return nil, err
	}

	ctx = services.WithSubmissionID(ctx, created.ID)
	logging.WithContext(ctx, s.logger).Info("submission recorded",
		logging.String("status", string(created.Status)),
		logging.String("source", created.Source),
		logging.Int("pages", created.PageCount),
		logging.String(logging.FieldEventType, "submission_recorded"),
	)
	if created.Status == submissions.StatusEmailSent {
		if err := s.notifier.Publish(ctx, notifications.EventSubmissionDelivered, notifications.Payload{
			"recipient":    created.Recipient,
			"pages":        created.PageCount,
			"submissionId": created.ID,
			"source":       created.Source,
		}); err != nil {
			s.logger.Debug("delivery notification failed", logging.Error(err))
		}
	}
	return created, nil
}

// deliveryOutcome is the result of a send that reached the relay. A non-nil
// recordErr means the email went out without a submission record.
type deliveryOutcome struct {
	submission *submissions.Submission
	recordErr  error
}

// deliver relays artifact and then records it as sent. A relay error is
// returned as err and nothing is recorded.
func (s *Server) deliver(ctx context.Context, msg api.EmailMessage, artifact []byte, from origin) (deliveryOutcome, error) {
	if _, err := s.sendEmail(ctx, msg, artifact, from); err != nil {
		return deliveryOutcome{}, err
	}
	created, err := s.recordDelivery(ctx, submissions.NewSubmission{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Status:    submissions.StatusEmailSent,
		Source:    from.source,
		FileID:    from.fileID,
		PageCount: from.pageCount,
		Artifact:  artifact,
	})
	if err != nil {
		_ = s.notifier.Publish(ctx, notifications.EventRecordFailed, notifications.Payload{"recipient": msg.To, "error": err.Error()})
		return deliveryOutcome{recordErr: err}, nil
	}
	return deliveryOutcome{submission: created}, nil
}

func (s *Server) recordFailure(ctx context.Context, msg api.EmailMessage, artifact []byte, rec origin, cause error) {
	logger := logging.WithContext(ctx, s.logger)
	created, err := s.store.Create(ctx, submissions.NewSubmission{
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Status:    submissions.StatusFailed,
		Source:    rec.source,
		FileID:    rec.fileID,
		PageCount: rec.pageCount,
		Artifact:  artifact,
	})
	if err != nil {
		logger.Warn("record failed submission", logging.Error(err))
		return
	}
	if err := s.store.UpdateStatus(ctx, created.ID, submissions.StatusFailed, cause.Error()); err != nil {
		logger.Warn("annotate failed submission", logging.Error(err))
	}
	logger.Info("failed submission recorded", logging.Int64(logging.FieldSubmissionID, created.ID))
}

func (s *Server) handleDirectEmail(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	fileID := chi.URLParam(r, "fileID")
	if err := validFileID(fileID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	var req api.DirectEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if _, err := mailer.ParseRecipients(req.To); err != nil {
		s.writeDomainError(w, err)
		return
	}
	artifact, err := s.composePages(fileID, req.Pages)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp, err := s.sendEmail(r.Context(), req.EmailMessage, artifact, origin{
		source:    submissions.SourceDirect,
		fileID:    fileID,
		pageCount: len(req.Pages),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStagedEmail(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	token := chi.URLParam(r, "token")
	ctx := services.WithToken(r.Context(), token)
	var msg api.EmailMessage
	if err := decodeJSON(r, &msg); err != nil {
		s.writeDomainError(w, err)
		return
	}
	artifact, bundle, err := s.cache.Artifact(token)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	resp, err := s.sendEmail(ctx, msg, artifact, origin{
		source:    submissions.SourceStaged,
		fileID:    bundle.FileID,
		pageCount: len(bundle.Pages),
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}
