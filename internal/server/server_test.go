package server_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"redline/internal/api"
	"redline/internal/services"
	"redline/internal/submissions"
	"redline/internal/testsupport"
)

func stagePages(t *testing.T, b *testsupport.Backend, fileID string, pages ...int) api.StageResponse {
	t.Helper()
	req := api.StageRequest{FileID: fileID}
	for _, p := range pages {
		req.Pages = append(req.Pages, api.Page{Page: p, Raster: testsupport.PNG(t, 40, 60, uint8(p*20))})
	}
	resp, err := b.Client.Stage(context.Background(), req)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	return resp
}

func TestStageAndFetchArtifact(t *testing.T) {
	b := testsupport.NewBackend(t)
	testsupport.WriteDocumentPage(t, b.Config.Paths.DocumentsDir, "doc-1", 2, testsupport.PNG(t, 40, 60, 250))

	resp := stagePages(t, b, "doc-1", 5, 2)
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if len(resp.Pages) != 2 || resp.Pages[0] != 2 || resp.Pages[1] != 5 {
		t.Fatalf("expected ascending pages [2 5], got %v", resp.Pages)
	}

	artifact, err := b.Client.FetchStaged(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("FetchStaged: %v", err)
	}
	if !bytes.HasPrefix(artifact, []byte("%PDF")) {
		t.Fatalf("expected a PDF artifact, got %q", artifact[:min(len(artifact), 8)])
	}
}

func TestStageRejectsEmptyPages(t *testing.T) {
	b := testsupport.NewBackend(t)
	_, err := b.Client.Stage(context.Background(), api.StageRequest{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchStagedUnknownTokenIsExpired(t *testing.T) {
	b := testsupport.NewBackend(t)
	_, err := b.Client.FetchStaged(context.Background(), uuid.NewString())
	if !errors.Is(err, services.ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestFetchPage(t *testing.T) {
	b := testsupport.NewBackend(t)
	want := testsupport.PNG(t, 10, 10, 7)
	testsupport.WriteDocumentPage(t, b.Config.Paths.DocumentsDir, "doc-1", 1, want)

	got, err := b.Client.FetchPage(context.Background(), "doc-1", 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("page bytes differ")
	}
	if _, err := b.Client.FetchPage(context.Background(), "doc-1", 9); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for missing page, got %v", err)
	}
	if _, err := b.Client.FetchPage(context.Background(), "bad$id", 1); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad file id, got %v", err)
	}
}

func TestDirectEmailRelaysComposedArtifact(t *testing.T) {
	b := testsupport.NewBackend(t)
	resp, err := b.Client.SendDirectEmail(context.Background(), "doc-1", api.DirectEmailRequest{
		EmailMessage: api.EmailMessage{To: "editor@example.com", Subject: "Chapter 1", Body: "Notes attached."},
		Pages:        []api.Page{{Page: 1, Raster: testsupport.PNG(t, 20, 20, 1)}},
	})
	if err != nil {
		t.Fatalf("SendDirectEmail: %v", err)
	}
	if !resp.Sent || resp.Recipients != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	msgs := b.SMTP.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Data, "annotations.pdf") {
		t.Fatalf("expected one message with the artifact, got %d", len(msgs))
	}

	count, err := b.Store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("email route must not persist, found %d submissions", count)
	}
}

func TestDirectEmailRejectsMissingRecipient(t *testing.T) {
	b := testsupport.NewBackend(t)
	_, err := b.Client.SendDirectEmail(context.Background(), "doc-1", api.DirectEmailRequest{
		Pages: []api.Page{{Page: 1, Raster: testsupport.PNG(t, 20, 20, 1)}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(b.SMTP.Messages()); n != 0 {
		t.Fatalf("expected no relay, got %d messages", n)
	}
}

func TestRecordFailureStoresFailedSubmission(t *testing.T) {
	b := testsupport.NewBackend(t)
	b.SMTP.RejectData()

	_, err := b.Client.SendDirectEmail(context.Background(), "doc-1", api.DirectEmailRequest{
		EmailMessage: api.EmailMessage{To: "editor@example.com", Subject: "x", RecordFailure: true},
		Pages:        []api.Page{{Page: 3, Raster: testsupport.PNG(t, 20, 20, 1)}},
	})
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	recs, err := b.Store.List(context.Background(), submissions.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one failed submission, got %d", len(recs))
	}
	if recs[0].ErrorMessage == "" || recs[0].FileID != "doc-1" {
		t.Fatalf("unexpected failed record %+v", recs[0])
	}
}

func TestStagedEmailThenPersist(t *testing.T) {
	b := testsupport.NewBackend(t)
	ctx := context.Background()
	staged := stagePages(t, b, "", 1)

	if _, err := b.Client.SendStagedEmail(ctx, staged.Token, api.EmailMessage{To: "a@example.com", Subject: "first"}); err != nil {
		t.Fatalf("SendStagedEmail: %v", err)
	}
	artifact, err := b.Client.FetchStaged(ctx, staged.Token)
	if err != nil {
		t.Fatalf("FetchStaged: %v", err)
	}

	first, err := b.Client.PersistSubmission(ctx, api.SubmissionUpload{
		Recipient: "a@example.com", Subject: "first", Status: "email_sent", Source: "staged",
	}, artifact)
	if err != nil {
		t.Fatalf("PersistSubmission: %v", err)
	}
	if first.PageCount != 1 {
		t.Fatalf("expected page count derived from artifact, got %d", first.PageCount)
	}
	second, err := b.Client.PersistSubmission(ctx, api.SubmissionUpload{
		Recipient: "b@example.com", Subject: "second", PageCount: 1,
	}, artifact)
	if err != nil {
		t.Fatalf("PersistSubmission: %v", err)
	}
	if second.Status != "email_sent" {
		t.Fatalf("expected default status email_sent, got %q", second.Status)
	}

	list, err := b.Client.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("ListSubmissions: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}

	got, err := b.Client.FetchSubmissionArtifact(ctx, first.ID)
	if err != nil {
		t.Fatalf("FetchSubmissionArtifact: %v", err)
	}
	if !bytes.Equal(got, artifact) {
		t.Fatal("stored artifact differs")
	}
	if _, err := b.Client.GetSubmission(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPersistRejectsMissingArtifact(t *testing.T) {
	b := testsupport.NewBackend(t)
	_, err := b.Client.PersistSubmission(context.Background(), api.SubmissionUpload{Recipient: "a@example.com"}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	b := testsupport.NewBackend(t, testsupport.WithAPIToken("s3cret"))

	resp, err := http.Get(b.HTTP.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	status, err := b.Client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status with token: %v", err)
	}
	if !status.Running || !status.MailEnabled {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestPreviewPageRendersPrefill(t *testing.T) {
	b := testsupport.NewBackend(t, testsupport.WithAPIToken("s3cret"))
	staged := stagePages(t, b, "", 1, 4)

	q := url.Values{"to": {"ana@example.com"}, "subject": {"<Review>"}}
	resp, err := http.Get(b.HTTP.URL + "/preview/" + staged.Token + "?" + q.Encode())
	if err != nil {
		t.Fatalf("GET preview: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	page := string(body)
	for _, want := range []string{`value="ana@example.com"`, `value="&lt;Review&gt;"`, "history.replaceState", "Pages: 1, 4"} {
		if !strings.Contains(page, want) {
			t.Fatalf("preview page missing %q", want)
		}
	}

	expired, err := http.Get(b.HTTP.URL + "/preview/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET expired preview: %v", err)
	}
	expired.Body.Close()
	if expired.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", expired.StatusCode)
	}
}

func TestPreviewSendDeliversAndRecords(t *testing.T) {
	b := testsupport.NewBackend(t)
	staged := stagePages(t, b, "doc-9", 2)

	resp, err := http.PostForm(b.HTTP.URL+"/preview/"+staged.Token+"/send", url.Values{
		"to":      {"ana@example.com"},
		"subject": {"Page two"},
		"body":    {"See markup."},
	})
	if err != nil {
		t.Fatalf("POST send: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "recorded as submission #") {
		t.Fatalf("unexpected response %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `href="/api/submissions"`) {
		t.Fatalf("expected a link to the submission list, got %s", body)
	}
	if n := len(b.SMTP.Messages()); n != 1 {
		t.Fatalf("expected one relayed message, got %d", n)
	}
	recs, err := b.Store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].Source != submissions.SourceStaged || recs[0].FileID != "doc-9" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestPreviewSendReportsPartialFailure(t *testing.T) {
	b := testsupport.NewBackend(t)
	staged := stagePages(t, b, "", 1)
	_ = b.Store.Close()

	resp, err := http.PostForm(b.HTTP.URL+"/preview/"+staged.Token+"/send", url.Values{"to": {"ana@example.com"}})
	if err != nil {
		t.Fatalf("POST send: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Email sent, but the submission could not be recorded.") {
		t.Fatalf("expected partial failure notice, got %s", body)
	}
	if n := len(b.SMTP.Messages()); n != 1 {
		t.Fatalf("expected the email to have been sent, got %d", n)
	}
}

func TestPreviewSendRejectsConcurrentSubmit(t *testing.T) {
	b := testsupport.NewBackend(t)
	staged := stagePages(t, b, "doc-3", 1)
	held, release := b.SMTP.HoldData(t)

	sendURL := b.HTTP.URL + "/preview/" + staged.Token + "/send"
	form := url.Values{"to": {"ana@example.com"}, "subject": {"Twice"}}

	first := make(chan int, 1)
	go func() {
		resp, err := http.PostForm(sendURL, form)
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	select {
	case <-held:
	case <-time.After(5 * time.Second):
		t.Fatal("first send never reached the relay")
	}

	resp, err := http.PostForm(sendURL, form)
	if err != nil {
		t.Fatalf("second POST: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict || !strings.Contains(string(body), "already in progress") {
		t.Fatalf("expected 409 for the second submit, got %d: %s", resp.StatusCode, body)
	}

	release()
	if code := <-first; code != http.StatusOK {
		t.Fatalf("expected first submit to succeed, got %d", code)
	}
	if n := len(b.SMTP.Messages()); n != 1 {
		t.Fatalf("expected one relayed message, got %d", n)
	}
	recs, err := b.Store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected one submission, got %d", len(recs))
	}
}

func TestPreviewSendPointsAtCLIWhenAPIIsLocked(t *testing.T) {
	b := testsupport.NewBackend(t, testsupport.WithAPIToken("s3cret"))
	staged := stagePages(t, b, "", 5)

	resp, err := http.PostForm(b.HTTP.URL+"/preview/"+staged.Token+"/send", url.Values{"to": {"ana@example.com"}})
	if err != nil {
		t.Fatalf("POST send: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	page := string(body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(page, "redline submissions show 1") {
		t.Fatalf("expected CLI registry hint, got %d: %s", resp.StatusCode, page)
	}
	if strings.Contains(page, `href="/api/submissions"`) {
		t.Fatal("locked API must not be linked from the preview page")
	}
}
