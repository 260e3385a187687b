package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"redline/internal/config"
)

const userAgent = "Redline/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventSubmissionDelivered Event = "submission_delivered"
	EventRecordFailed        Event = "record_failed"
	EventError               Event = "error"
	EventTest                Event = "test"
)

// Payload carries event fields. Keys are event specific.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		cfg:      cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	cfg      config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	msg, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventSubmissionDelivered:
		if !n.cfg.Delivered {
			return message{}, false
		}
		recipient := payload.String("recipient")
		pages := payload.Int("pages")
		body := fmt.Sprintf("📨 Sent %s to %s", pluralPages(pages), recipient)
		if id := payload.Int("submissionId"); id > 0 {
			body = fmt.Sprintf("%s\nSubmission #%d", body, id)
		}
		return message{
			title: "Redline - Delivered",
			body:  body,
			tags:  []string{"redline", "delivery", payload.StringOr("source", "direct")},
		}, true
	case EventRecordFailed:
		if !n.cfg.RecordFailed {
			return message{}, false
		}
		return message{
			title:    "Redline - Record Failed",
			body:     fmt.Sprintf("⚠️ Email to %s was sent but not recorded: %s", payload.String("recipient"), payload.StringOr("error", "unknown")),
			tags:     []string{"redline", "delivery", "partial"},
			priority: "high",
		}, true
	case EventError:
		if !n.cfg.Errors {
			return message{}, false
		}
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := payload.String("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(payload.StringOr("error", "unknown"))
		return message{
			title:    "Redline - Error",
			body:     b.String(),
			tags:     []string{"redline", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Redline - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"redline", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// String returns the trimmed string value for key.
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// StringOr returns String(key) or fallback when empty.
func (p Payload) StringOr(key, fallback string) string {
	if v := p.String(key); v != "" {
		return v
	}
	return fallback
}

// Int returns an integer value for key, or zero.
func (p Payload) Int(key string) int64 {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func pluralPages(n int64) string {
	if n == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
