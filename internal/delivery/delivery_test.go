package delivery_test

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"

	"redline/internal/api"
	"redline/internal/cart"
	"redline/internal/delivery"
	"redline/internal/services"
	"redline/internal/staging"
	"redline/internal/testsupport"
)

type fakeBackend struct {
	mu         sync.Mutex
	trace      []string
	notifyErr  error
	persistErr error
	stagedPDF  []byte
	persisted  []api.SubmissionUpload
	block      chan struct{}
	// directGate pauses SendDirectEmail after it has recorded the pages.
	directGate *gate
	emailed    [][]int
}

type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, call)
}

func (f *fakeBackend) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.trace)
}

func (f *fakeBackend) FetchPage(_ context.Context, _ string, _ int) ([]byte, error) {
	f.record("fetch_page")
	return nil, services.Wrap(services.ErrNotFound, "test", "fetch page", "no base", nil)
}

func (f *fakeBackend) FetchStaged(_ context.Context, token string) ([]byte, error) {
	f.record("fetch_staged:" + token)
	return f.stagedPDF, nil
}

func (f *fakeBackend) SendStagedEmail(_ context.Context, token string, msg api.EmailMessage) (api.EmailResponse, error) {
	f.record("notify_staged:" + token)
	if f.block != nil {
		<-f.block
	}
	if f.notifyErr != nil {
		return api.EmailResponse{}, f.notifyErr
	}
	return api.EmailResponse{Sent: true, Recipients: 1, MessageID: "<m1@test>"}, nil
}

func (f *fakeBackend) SendDirectEmail(_ context.Context, fileID string, req api.DirectEmailRequest) (api.EmailResponse, error) {
	f.record("notify_direct:" + fileID)
	pages := make([]int, len(req.Pages))
	for i, p := range req.Pages {
		pages[i] = p.Page
	}
	f.mu.Lock()
	f.emailed = append(f.emailed, pages)
	f.mu.Unlock()
	if g := f.directGate; g != nil {
		close(g.entered)
		<-g.release
	}
	if f.notifyErr != nil {
		return api.EmailResponse{}, f.notifyErr
	}
	return api.EmailResponse{Sent: true, Recipients: 1}, nil
}

func (f *fakeBackend) PersistSubmission(_ context.Context, meta api.SubmissionUpload, artifact []byte) (api.Submission, error) {
	f.record("persist")
	if f.persistErr != nil {
		return api.Submission{}, f.persistErr
	}
	f.mu.Lock()
	f.persisted = append(f.persisted, meta)
	f.mu.Unlock()
	return api.Submission{ID: 7, Recipient: meta.Recipient, Status: meta.Status, PageCount: meta.PageCount}, nil
}

type toast struct {
	severity delivery.Severity
	message  string
}

type toasts struct {
	mu    sync.Mutex
	items []toast
}

func (t *toasts) Notify(severity delivery.Severity, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append(t.items, toast{severity, message})
}

func (t *toasts) count(severity delivery.Severity) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, item := range t.items {
		if item.severity == severity {
			n++
		}
	}
	return n
}

type navigator struct{ shown int }

func (n *navigator) ShowRegistry(context.Context) { n.shown++ }

func filledCart(t *testing.T, pages ...int) *cart.Cart {
	t.Helper()
	c := cart.NewForFile("doc-1")
	for _, page := range pages {
		if _, err := c.Save(page, testsupport.PNG(t, 20, 30, uint8(page*10))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	return c
}

var msg = delivery.Message{To: "reviewer@example.com", Subject: "Notes", Body: "See attached."}

func TestDeliverCartNotifiesBeforePersisting(t *testing.T) {
	backend := &fakeBackend{}
	notes := &toasts{}
	nav := &navigator{}
	o := delivery.New(delivery.Options{Backend: backend, Notifier: notes, Navigator: nav})
	c := filledCart(t, 3, 1)

	out, err := o.Deliver(context.Background(), delivery.NewCartSource(c), msg)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !out.Recorded || out.Submission.ID != 7 {
		t.Fatalf("unexpected outcome %+v", out)
	}

	calls := backend.calls()
	notifyAt := slices.Index(calls, "notify_direct:doc-1")
	persistAt := slices.Index(calls, "persist")
	if notifyAt < 0 || persistAt < 0 || notifyAt > persistAt {
		t.Fatalf("expected notify before persist, got %v", calls)
	}
	if !c.Empty() {
		t.Fatalf("expected cart cleared after full success")
	}
	if nav.shown != 1 {
		t.Fatalf("expected registry shown once, got %d", nav.shown)
	}
	if notes.count(delivery.SeverityInfo) != 1 {
		t.Fatalf("expected one success notice, got %+v", notes.items)
	}
	meta := backend.persisted[0]
	if meta.Status != "email_sent" || meta.Source != "direct" || meta.PageCount != 2 || meta.FileID != "doc-1" {
		t.Fatalf("unexpected persisted metadata %+v", meta)
	}
}

func TestDeliverNotifyFailureSkipsPersist(t *testing.T) {
	backend := &fakeBackend{notifyErr: errors.New("smtp unreachable")}
	notes := &toasts{}
	o := delivery.New(delivery.Options{Backend: backend, Notifier: notes})
	c := filledCart(t, 1)

	_, err := o.Deliver(context.Background(), delivery.NewCartSource(c), msg)
	var terr *delivery.TransportError
	if !errors.As(err, &terr) || terr.Phase != "notify" {
		t.Fatalf("expected notify transport error, got %v", err)
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport in chain, got %v", err)
	}
	if slices.Contains(backend.calls(), "persist") {
		t.Fatalf("persist must not run after failed notify: %v", backend.calls())
	}
	if c.Empty() {
		t.Fatalf("cart must be kept after failed notify")
	}
	if notes.count(delivery.SeverityError) != 1 {
		t.Fatalf("expected one error notice, got %+v", notes.items)
	}
}

func TestDeliverPartialFailureWarnsOnce(t *testing.T) {
	backend := &fakeBackend{persistErr: errors.New("database is locked")}
	notes := &toasts{}
	nav := &navigator{}
	o := delivery.New(delivery.Options{Backend: backend, Notifier: notes, Navigator: nav})
	c := filledCart(t, 2)

	out, err := o.Deliver(context.Background(), delivery.NewCartSource(c), msg)
	var partial *delivery.PartialFailure
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if partial.Recipient != msg.To {
		t.Fatalf("unexpected recipient %q", partial.Recipient)
	}
	if services.Kind(err) != "partial" {
		t.Fatalf("expected partial kind, got %q", services.Kind(err))
	}
	if !out.Email.Sent || out.Recorded {
		t.Fatalf("unexpected outcome %+v", out)
	}

	calls := backend.calls()
	persists := 0
	for _, call := range calls {
		if call == "persist" {
			persists++
		}
	}
	if persists != 1 {
		t.Fatalf("persist must not be retried, trace %v", calls)
	}
	if notes.count(delivery.SeverityWarning) != 1 || len(notes.items) != 1 {
		t.Fatalf("expected exactly one warning, got %+v", notes.items)
	}
	if !strings.Contains(notes.items[0].message, msg.To) {
		t.Fatalf("warning should name the recipient: %q", notes.items[0].message)
	}
	if c.Empty() {
		t.Fatalf("cart must be kept after partial failure")
	}
	if nav.shown != 0 {
		t.Fatalf("registry must not be shown after partial failure")
	}
}

func TestDeliverValidationMakesNoCalls(t *testing.T) {
	tests := []struct {
		name  string
		src   delivery.Source
		to    string
		field string
	}{
		{name: "empty cart", src: delivery.NewCartSource(cart.New()), to: msg.To, field: "pages"},
		{name: "missing token", src: delivery.NewStagedSource("", "", 0), to: msg.To, field: "pages"},
		{name: "blank recipient", src: delivery.NewStagedSource("tok", "", 1), to: "  ", field: "recipient"},
		{name: "bad recipient", src: delivery.NewStagedSource("tok", "", 1), to: "not-an-address", field: "recipient"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			notes := &toasts{}
			o := delivery.New(delivery.Options{Backend: backend, Notifier: notes})

			_, err := o.Deliver(context.Background(), tt.src, delivery.Message{To: tt.to})
			var verr *delivery.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected ErrValidation in chain")
			}
			if calls := backend.calls(); len(calls) != 0 {
				t.Fatalf("expected no backend calls, got %v", calls)
			}
			if notes.count(delivery.SeverityError) != 1 {
				t.Fatalf("expected one error notice")
			}
		})
	}
}

func TestDeliverStagedUsesFetchedArtifact(t *testing.T) {
	backend := &fakeBackend{stagedPDF: []byte("%PDF-1.7 staged")}
	o := delivery.New(delivery.Options{Backend: backend})
	src := delivery.NewStagedSource(staging.Token("abc"), "doc-9", 4)

	out, err := o.Deliver(context.Background(), src, msg)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	want := []string{"notify_staged:abc", "fetch_staged:abc", "persist"}
	if got := backend.calls(); !slices.Equal(got, want) {
		t.Fatalf("trace = %v, want %v", got, want)
	}
	if out.Submission.PageCount != 4 || backend.persisted[0].Source != "staged" {
		t.Fatalf("unexpected persisted %+v", backend.persisted[0])
	}
}

func TestDeliverRejectsConcurrentSend(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	o := delivery.New(delivery.Options{Backend: backend})
	src := delivery.NewStagedSource("abc", "", 1)

	done := make(chan error, 1)
	go func() {
		_, err := o.Deliver(context.Background(), src, msg)
		done <- err
	}()
	for !o.InFlight() {
		runtime.Gosched()
	}

	if _, err := o.Deliver(context.Background(), src, msg); !errors.Is(err, delivery.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if o.InFlight() {
		t.Fatalf("guard not released")
	}
}

func TestDeliverIgnoresCallerCancellation(t *testing.T) {
	backend := &fakeBackend{stagedPDF: []byte("%PDF")}
	o := delivery.New(delivery.Options{Backend: backend})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := o.Deliver(ctx, delivery.NewStagedSource("abc", "", 1), msg)
	if err != nil || !out.Recorded {
		t.Fatalf("expected delivery to complete, got %+v %v", out, err)
	}
}

func TestDeliverSendsSnapshotWhileCartChanges(t *testing.T) {
	backend := &fakeBackend{directGate: newGate()}
	o := delivery.New(delivery.Options{Backend: backend, Notifier: &toasts{}})
	c := filledCart(t, 2)

	type result struct {
		out delivery.Outcome
		err error
	}
	done := make(chan result, 1)
	src := delivery.NewCartSource(c)
	go func() {
		out, err := o.Deliver(context.Background(), src, msg)
		done <- result{out, err}
	}()

	<-backend.directGate.entered
	if _, err := c.Save(7, testsupport.PNG(t, 20, 30, 70)); err != nil {
		t.Fatalf("Save during send: %v", err)
	}
	close(backend.directGate.release)
	res := <-done
	if res.err != nil {
		t.Fatalf("Deliver: %v", res.err)
	}

	if len(backend.emailed) != 1 || !slices.Equal(backend.emailed[0], []int{2}) {
		t.Fatalf("emailed pages = %v, want [[2]]", backend.emailed)
	}
	if len(backend.persisted) != 1 || backend.persisted[0].PageCount != 1 {
		t.Fatalf("persisted %+v, want one record of one page", backend.persisted)
	}
	if got := c.Pages(); !slices.Equal(got, []int{7}) {
		t.Fatalf("cart after send = %v, want the undelivered page [7]", got)
	}
}
