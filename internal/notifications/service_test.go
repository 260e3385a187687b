package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"redline/internal/config"
	"redline/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventSubmissionDelivered, notifications.Payload{"recipient": "a@example.com"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type ntfyPost struct {
	Title, Tags, Priority, Body string
}

// recordNtfy points a default config at a server that captures each post.
func recordNtfy(t *testing.T) (*config.Config, <-chan ntfyPost) {
	t.Helper()
	posts := make(chan ntfyPost, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		posts <- ntfyPost{
			Title:    r.Header.Get("Title"),
			Tags:     r.Header.Get("Tags"),
			Priority: r.Header.Get("Priority"),
			Body:     string(body),
		}
	}))
	t.Cleanup(srv.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL + "/redline"
	return &cfg, posts
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name    string
		event   notifications.Event
		payload notifications.Payload
		want    ntfyPost
	}{
		{
			name:  "submission delivered",
			event: notifications.EventSubmissionDelivered,
			payload: notifications.Payload{
				"recipient":    "editor@example.com",
				"pages":        3,
				"submissionId": int64(12),
				"source":       "staged",
			},
			want: ntfyPost{
				Title: "Redline - Delivered",
				Tags:  "redline,delivery,staged",
				Body:  "📨 Sent 3 pages to editor@example.com\nSubmission #12",
			},
		},
		{
			name:    "single page defaults to direct",
			event:   notifications.EventSubmissionDelivered,
			payload: notifications.Payload{"recipient": "editor@example.com", "pages": 1},
			want: ntfyPost{
				Title: "Redline - Delivered",
				Tags:  "redline,delivery,direct",
				Body:  "📨 Sent 1 page to editor@example.com",
			},
		},
		{
			name:    "record failed",
			event:   notifications.EventRecordFailed,
			payload: notifications.Payload{"recipient": "editor@example.com", "error": "database is locked"},
			want: ntfyPost{
				Title:    "Redline - Record Failed",
				Tags:     "redline,delivery,partial",
				Priority: "high",
				Body:     "⚠️ Email to editor@example.com was sent but not recorded: database is locked",
			},
		},
		{
			name:    "error",
			event:   notifications.EventError,
			payload: notifications.Payload{"context": "staging", "error": "disk full"},
			want: ntfyPost{
				Title:    "Redline - Error",
				Tags:     "redline,error,alert",
				Priority: "high",
				Body:     "❌ Error with staging: disk full",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, posts := recordNtfy(t)
			if err := notifications.NewService(cfg).Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if got := <-posts; got != tc.want {
				t.Fatalf("posted %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNtfyServiceIgnoresDisabledEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected call for suppressed event: %s", r.Header.Get("Title"))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Delivered = false
	cfg.Notifications.RecordFailed = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	for _, event := range []notifications.Event{
		notifications.EventSubmissionDelivered,
		notifications.EventRecordFailed,
		notifications.EventError,
		notifications.Event("unknown"),
	} {
		if err := svc.Publish(context.Background(), event, notifications.Payload{"recipient": "x@example.com"}); err != nil {
			t.Fatalf("expected no error for suppressed event %s, got %v", event, err)
		}
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 429 response")
	}
}
