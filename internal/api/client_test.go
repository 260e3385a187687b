package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"redline/internal/api"
	"redline/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := api.NewClient(srv.URL, "secret", 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestStageSendsPagesAndToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/staging" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var req api.StageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(req.Pages) != 2 || req.Pages[0].Page != 1 || string(req.Pages[1].Raster) != "r3" {
			t.Errorf("unexpected pages %+v", req.Pages)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.StageResponse{Token: "tok", Pages: []int{1, 3}})
	})

	resp, err := client.Stage(context.Background(), api.StageRequest{Pages: []api.Page{{Page: 1, Raster: []byte("r1")}, {Page: 3, Raster: []byte("r3")}}})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if resp.Token != "tok" {
		t.Fatalf("unexpected token %q", resp.Token)
	}
}

func TestStatusErrorsMapToSentinels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "expired", status: http.StatusNotFound, body: `{"error":"token expired","kind":"expired"}`, want: services.ErrTokenExpired},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"missing"}`, want: services.ErrNotFound},
		{name: "validation", status: http.StatusBadRequest, body: `{"error":"bad"}`, want: services.ErrValidation},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", want: services.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.FetchStaged(context.Background(), "tok")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var statusErr *api.StatusError
			if !errors.As(err, &statusErr) || statusErr.Status != tt.status {
				t.Fatalf("expected StatusError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestTransportFailureIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := api.NewClient(url, "", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.ListSubmissions(context.Background())
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !api.IsUnavailable(err) {
		t.Fatalf("expected unavailable classification, got %v", err)
	}
}

func TestPersistSubmissionSendsMultipart(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if r.FormValue("recipient") != "a@b.com" || r.FormValue("status") != "email_sent" || r.FormValue("pageCount") != "2" {
			t.Errorf("unexpected form %v", r.MultipartForm.Value)
		}
		file, _, err := r.FormFile("artifact")
		if err != nil {
			t.Errorf("artifact: %v", err)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.7" {
			t.Errorf("unexpected artifact %q", data)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(api.Submission{ID: 9, Recipient: "a@b.com", Status: "email_sent"})
	})

	created, err := client.PersistSubmission(context.Background(), api.SubmissionUpload{
		Recipient: "a@b.com",
		Subject:   "Review",
		Status:    "email_sent",
		PageCount: 2,
	}, []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("PersistSubmission: %v", err)
	}
	if created.ID != 9 {
		t.Fatalf("unexpected id %d", created.ID)
	}
}

func TestNewClientRequiresURL(t *testing.T) {
	if _, err := api.NewClient("  ", "", time.Second); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	client, err := api.NewClient("127.0.0.1:7488/", "", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if got := client.BaseURL().String(); got != "http://127.0.0.1:7488" {
		t.Fatalf("unexpected base url %q", got)
	}
}
