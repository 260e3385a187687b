package mailer

import (
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"redline/internal/services"
)

// Attachment is a file carried by a Message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Receipt acknowledges a relayed message.
type Receipt struct {
	MessageID  string
	Recipients int
}

var textPolicy = bluemonday.StrictPolicy()

// ParseRecipients splits a comma-separated address list. At least one valid
// address is required.
func ParseRecipients(to string) ([]string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil, services.Wrap(services.ErrValidation, "mailer", "recipients", "recipient address is required", nil)
	}
	list, err := mail.ParseAddressList(to)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "mailer", "recipients", fmt.Sprintf("invalid recipient %q", to), err)
	}
	out := make([]string, 0, len(list))
	for _, addr := range list {
		out = append(out, addr.Address)
	}
	return out, nil
}

// SanitizeText removes any markup from user-entered text.
func SanitizeText(value string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(value)))
}

// SanitizeSubject removes markup and line breaks.
func SanitizeSubject(value string) string {
	clean := SanitizeText(value)
	return strings.Join(strings.Fields(clean), " ")
}

// HTMLBody renders sanitized text as a minimal HTML fragment.
func HTMLBody(text string) string {
	paragraphs := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	var b strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
