package delivery

import (
	"context"
	"errors"
	"strings"

	"redline/internal/api"
	"redline/internal/cart"
	"redline/internal/compose"
	"redline/internal/services"
	"redline/internal/staging"
	"redline/internal/submissions"
)

// DefaultFileID addresses the direct email route when a cart is not tied to a
// document.
const DefaultFileID = "untitled"

// Backend is the subset of the daemon API used by Deliver.
type Backend interface {
	FetchPage(ctx context.Context, fileID string, page int) ([]byte, error)
	FetchStaged(ctx context.Context, token string) ([]byte, error)
	SendStagedEmail(ctx context.Context, token string, msg api.EmailMessage) (api.EmailResponse, error)
	SendDirectEmail(ctx context.Context, fileID string, req api.DirectEmailRequest) (api.EmailResponse, error)
	PersistSubmission(ctx context.Context, meta api.SubmissionUpload, artifact []byte) (api.Submission, error)
}

// Source is what a delivery sends.
type Source interface {
	// Kind is recorded on the submission ("direct" or "staged").
	Kind() string
	Empty() bool
	FileID() string
	// PageCount is zero when unknown.
	PageCount() int

	notify(ctx context.Context, b Backend, msg api.EmailMessage) (api.EmailResponse, error)
	assemble(ctx context.Context, b Backend, c *compose.Composer) ([]byte, error)
	complete()
}

// CartSource delivers a snapshot of a cart's captures. Both phases use the
// snapshot, so pages saved while a delivery runs are neither sent nor recorded.
type CartSource struct {
	cart     *cart.Cart
	fileID   string
	captures []cart.Capture
}

// NewCartSource snapshots the captures c holds now.
func NewCartSource(c *cart.Cart) *CartSource {
	s := &CartSource{cart: c}
	if c != nil {
		s.fileID = c.FileID()
		s.captures = c.Captures()
	}
	return s
}

func (s *CartSource) Kind() string { return submissions.SourceDirect }

func (s *CartSource) Empty() bool { return s == nil || len(s.captures) == 0 }

func (s *CartSource) FileID() string {
	if id := strings.TrimSpace(s.fileID); id != "" {
		return id
	}
	return DefaultFileID
}

func (s *CartSource) PageCount() int { return len(s.captures) }

// Pages lists the snapshot's page numbers in ascending order.
func (s *CartSource) Pages() []int {
	pages := make([]int, len(s.captures))
	for i, capture := range s.captures {
		pages[i] = capture.PageNumber
	}
	return pages
}

func (s *CartSource) notify(ctx context.Context, b Backend, msg api.EmailMessage) (api.EmailResponse, error) {
	return b.SendDirectEmail(ctx, s.FileID(), api.DirectEmailRequest{
		EmailMessage: msg,
		Pages:        staging.PagesFromCaptures(s.captures),
	})
}

// assemble composes the snapshot locally, flattening onto page images the
// daemon can serve.
func (s *CartSource) assemble(ctx context.Context, b Backend, c *compose.Composer) ([]byte, error) {
	pages := make([]compose.Page, 0, len(s.captures))
	for _, capture := range s.captures {
		page := compose.Page{Number: capture.PageNumber, Overlay: capture.Raster}
		base, err := b.FetchPage(ctx, s.FileID(), capture.PageNumber)
		switch {
		case err == nil:
			page.Base = base
		case errors.Is(err, services.ErrNotFound), errors.Is(err, services.ErrValidation):
			// composed onto a white page
		default:
			return nil, err
		}
		pages = append(pages, page)
	}
	return c.Compose(pages)
}

func (s *CartSource) complete() {
	if s.cart != nil {
		s.cart.Settle(s.captures)
	}
}

// StagedSource delivers a staged bundle.
type StagedSource struct {
	token  staging.Token
	fileID string
	pages  int
}

// NewStagedSource wraps token. pages may be zero when the page count is unknown.
func NewStagedSource(token staging.Token, fileID string, pages int) *StagedSource {
	return &StagedSource{token: token, fileID: fileID, pages: pages}
}

func (s *StagedSource) Kind() string { return submissions.SourceStaged }

func (s *StagedSource) Empty() bool { return s == nil || strings.TrimSpace(string(s.token)) == "" }

func (s *StagedSource) FileID() string { return s.fileID }

func (s *StagedSource) PageCount() int { return s.pages }

// Token returns the staged bundle token.
func (s *StagedSource) Token() staging.Token { return s.token }

func (s *StagedSource) notify(ctx context.Context, b Backend, msg api.EmailMessage) (api.EmailResponse, error) {
	return b.SendStagedEmail(ctx, string(s.token), msg)
}

func (s *StagedSource) assemble(ctx context.Context, b Backend, _ *compose.Composer) ([]byte, error) {
	return b.FetchStaged(ctx, string(s.token))
}

func (s *StagedSource) complete() {}
