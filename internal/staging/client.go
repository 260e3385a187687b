package staging

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"redline/internal/api"
	"redline/internal/cart"
	"redline/internal/logging"
	"redline/internal/services"
)

// Token references a staged bundle on the daemon.
type Token string

func (t Token) String() string { return string(t) }

// Transport is the subset of the daemon API used for staging.
type Transport interface {
	Stage(ctx context.Context, req api.StageRequest) (api.StageResponse, error)
	FetchStaged(ctx context.Context, token string) ([]byte, error)
}

// Client stages carts and resolves tokens.
type Client struct {
	transport Transport
	logger    *slog.Logger
}

// NewClient wraps transport.
func NewClient(transport Transport, logger *slog.Logger) *Client {
	return &Client{transport: transport, logger: logging.NewComponentLogger(logger, "staging")}
}

// Stage uploads every capture in c, ascending by page, and returns the token.
func (s *Client) Stage(ctx context.Context, c *cart.Cart) (Token, error) {
	if c == nil || c.Empty() {
		return "", services.Wrap(services.ErrValidation, "staging", "stage", "cart is empty", nil)
	}
	pages := PagesFromCart(c)
	resp, err := s.transport.Stage(ctx, api.StageRequest{FileID: c.FileID(), Pages: pages})
	if err != nil {
		s.logger.Warn("staging failed",
			logging.Int("pages", len(pages)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "staging_failed"),
			logging.String(logging.FieldErrorHint, "check that the daemon is reachable"),
			logging.String(logging.FieldImpact, "preview not opened"),
		)
		return "", asTransport(err, "stage")
	}
	token := strings.TrimSpace(resp.Token)
	if token == "" {
		return "", services.Wrap(services.ErrTransport, "staging", "stage", "server returned no token", nil)
	}
	s.logger.Info("pages staged",
		logging.Int("pages", len(pages)),
		logging.String(logging.FieldToken, token),
		logging.String(logging.FieldEventType, "pages_staged"),
	)
	return Token(token), nil
}

// Resolve fetches the composed artifact for token.
func (s *Client) Resolve(ctx context.Context, token Token) ([]byte, error) {
	if strings.TrimSpace(string(token)) == "" {
		return nil, services.Wrap(services.ErrValidation, "staging", "resolve", "token is empty", nil)
	}
	data, err := s.transport.FetchStaged(ctx, string(token))
	if err != nil {
		if errors.Is(err, services.ErrTokenExpired) || errors.Is(err, services.ErrNotFound) {
			return nil, services.Wrap(services.ErrTokenExpired, "staging", "resolve", "staged bundle is no longer available", err)
		}
		return nil, asTransport(err, "resolve")
	}
	return data, nil
}

// PagesFromCart converts captures into wire pages, ascending by page number.
func PagesFromCart(c *cart.Cart) []api.Page {
	return PagesFromCaptures(c.Captures())
}

// PagesFromCaptures converts an already ordered capture snapshot into wire pages.
func PagesFromCaptures(captures []cart.Capture) []api.Page {
	pages := make([]api.Page, 0, len(captures))
	for _, capture := range captures {
		pages = append(pages, api.Page{Page: capture.PageNumber, Raster: capture.Raster})
	}
	return pages
}

// asTransport tags err as a transport failure unless it already carries one.
func asTransport(err error, op string) error {
	if errors.Is(err, services.ErrTransport) {
		return err
	}
	return services.Wrap(services.ErrTransport, "staging", op, "request failed", err)
}
