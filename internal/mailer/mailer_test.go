package mailer_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/services"
	"redline/internal/testsupport"
)

func TestParseRecipients(t *testing.T) {
	got, err := mailer.ParseRecipients("Ana <ana@example.com>, bo@example.com")
	if err != nil {
		t.Fatalf("ParseRecipients: %v", err)
	}
	if len(got) != 2 || got[0] != "ana@example.com" || got[1] != "bo@example.com" {
		t.Fatalf("unexpected recipients %v", got)
	}

	for _, bad := range []string{"", "   ", "not-an-address"} {
		if _, err := mailer.ParseRecipients(bad); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", bad, err)
		}
	}
}

func TestSanitizeStripsMarkup(t *testing.T) {
	body := mailer.SanitizeText("<script>alert(1)</script>See <b>page 3</b> &amp; 4")
	if strings.Contains(body, "<") || strings.Contains(body, "script") {
		t.Fatalf("markup survived sanitizing: %q", body)
	}
	if !strings.Contains(body, "See page 3 & 4") {
		t.Fatalf("text lost during sanitizing: %q", body)
	}
	if subject := mailer.SanitizeSubject("Review\r\nBcc: evil@example.com"); strings.ContainsAny(subject, "\r\n") {
		t.Fatalf("subject kept line breaks: %q", subject)
	}
}

func TestHTMLBodyEscapesParagraphs(t *testing.T) {
	got := mailer.HTMLBody("a < b\nline two\n\nsecond")
	want := "<p>a &lt; b<br>line two</p><p>second</p>"
	if got != want {
		t.Fatalf("HTMLBody = %q, want %q", got, want)
	}
}

func TestNewSMTPSenderRequiresHost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := mailer.NewSMTPSender(cfg, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSMTPSenderRelaysAttachment(t *testing.T) {
	smtp := testsupport.NewSMTPServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithMail(smtp.Host(), smtp.Port()))

	sender, err := mailer.NewSMTPSender(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	receipt, err := sender.Send(context.Background(), mailer.Message{
		To:      "ana@example.com, bo@example.com",
		Subject: "Markup for chapter 2",
		Body:    "See the circled figures.",
		Attachments: []mailer.Attachment{{
			Name:        "annotations.pdf",
			ContentType: "application/pdf",
			Data:        []byte("%PDF-1.7 test"),
		}},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if receipt.Recipients != 2 {
		t.Fatalf("expected 2 recipients, got %d", receipt.Recipients)
	}
	if receipt.MessageID == "" {
		t.Fatal("expected a message id")
	}

	messages := smtp.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected one relayed message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.From != "reviews@example.com" {
		t.Fatalf("unexpected envelope sender %q", msg.From)
	}
	if len(msg.To) != 2 {
		t.Fatalf("unexpected envelope recipients %v", msg.To)
	}
	if !strings.Contains(msg.Data, "Subject: Markup for chapter 2") {
		t.Fatalf("subject header missing:\n%s", msg.Data)
	}
	if !strings.Contains(msg.Data, "annotations.pdf") {
		t.Fatalf("attachment missing:\n%s", msg.Data)
	}
}

func TestSMTPSenderReportsRelayFailureAsTransport(t *testing.T) {
	smtp := testsupport.NewSMTPServer(t)
	smtp.RejectData()
	cfg := testsupport.NewConfig(t, testsupport.WithMail(smtp.Host(), smtp.Port()))

	sender, err := mailer.NewSMTPSender(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewSMTPSender: %v", err)
	}
	_, err = sender.Send(context.Background(), mailer.Message{To: "ana@example.com", Subject: "x", Body: "y"})
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
