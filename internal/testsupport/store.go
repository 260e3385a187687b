package testsupport

import (
	"context"
	"testing"

	"redline/internal/config"
	"redline/internal/submissions"
)

// MustOpenStore opens a submissions.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *submissions.Store {
	t.Helper()

	store, err := submissions.Open(cfg)
	if err != nil {
		t.Fatalf("submissions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewSubmission inserts an email_sent submission carrying artifact.
func NewSubmission(t testing.TB, store *submissions.Store, recipient string, artifact []byte) *submissions.Submission {
	t.Helper()

	rec, err := store.Create(context.Background(), submissions.NewSubmission{
		Recipient: recipient,
		Subject:   "test submission",
		Status:    submissions.StatusEmailSent,
		Source:    submissions.SourceDirect,
		PageCount: 1,
		Artifact:  artifact,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}
