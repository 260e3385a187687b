package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"redline/internal/config"
	"redline/internal/logging"
	"redline/internal/services"
)

// Sender relays messages.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// SMTPSender relays through an SMTP host.
type SMTPSender struct {
	cfg    config.Mail
	logger *slog.Logger
}

// NewSMTPSender returns a sender for cfg.Mail. Mail must be enabled.
func NewSMTPSender(cfg *config.Config, logger *slog.Logger) (*SMTPSender, error) {
	if cfg == nil || !cfg.MailEnabled() {
		return nil, services.Wrap(services.ErrConfiguration, "mailer", "new sender", "mail.host is not configured", nil)
	}
	return &SMTPSender{cfg: cfg.Mail, logger: logging.NewComponentLogger(logger, "mailer")}, nil
}

// Build assembles the go-mail message for msg.
func (s *SMTPSender) Build(msg Message) (*mail.Msg, int, error) {
	recipients, err := ParseRecipients(msg.To)
	if err != nil {
		return nil, 0, err
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, 0, services.Wrap(services.ErrConfiguration, "mailer", "build", "invalid sender address", err)
	}
	if err := m.To(recipients...); err != nil {
		return nil, 0, services.Wrap(services.ErrValidation, "mailer", "build", "invalid recipient", err)
	}
	m.Subject(SanitizeSubject(msg.Subject))
	m.SetDate()
	m.SetMessageID()

	text := SanitizeText(msg.Body)
	m.SetBodyString(mail.TypeTextPlain, text)
	if htmlBody := HTMLBody(text); htmlBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	for _, att := range msg.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := m.AttachReader(att.Name, bytes.NewReader(att.Data), mail.WithFileContentType(mail.ContentType(contentType))); err != nil {
			return nil, 0, services.Wrap(services.ErrValidation, "mailer", "build", "attach "+att.Name, err)
		}
	}
	return m, len(recipients), nil
}

// Send relays msg and returns its Message-ID.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	m, count, err := s.Build(msg)
	if err != nil {
		return Receipt{}, err
	}
	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return Receipt{}, services.Wrap(services.ErrConfiguration, "mailer", "send", "create smtp client", err)
	}

	started := time.Now()
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return Receipt{}, services.Wrap(services.ErrTransport, "mailer", "send", fmt.Sprintf("relay via %s:%d", s.cfg.Host, s.cfg.Port), err)
	}

	receipt := Receipt{Recipients: count}
	if ids := m.GetGenHeader(mail.HeaderMessageID); len(ids) > 0 {
		receipt.MessageID = strings.Trim(ids[0], "<>")
	}
	s.logger.Info("message relayed",
		logging.Int("recipients", count),
		logging.Int("attachments", len(msg.Attachments)),
		logging.String("message_id", receipt.MessageID),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "mail_sent"),
	)
	return receipt, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tlsPolicy(s.cfg.TLSPolicy)),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(time.Duration(s.cfg.Timeout)*time.Second))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func tlsPolicy(value string) mail.TLSPolicy {
	switch value {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}
