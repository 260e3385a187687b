package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"redline/internal/cart"
	"redline/internal/logging"
	"redline/internal/services"
	"redline/internal/staging"
)

// PlaceholderHTML is written into the window while staging runs.
const PlaceholderHTML = `<!doctype html><html><head><meta charset="utf-8"><title>Preparing preview</title></head>` +
	`<body style="font-family:sans-serif;padding:2rem">Preparing preview&hellip;</body></html>`

// ErrPopupBlocked reports that neither a new window nor direct navigation was
// allowed. It is not fatal; the Result still carries the preview URL.
var ErrPopupBlocked = errors.New("preview window blocked")

// Window is a browsing context opened by Browser.Open.
type Window interface {
	WritePlaceholder(html string) error
	Navigate(target string) error
	Close() error
}

// Browser opens browsing contexts. Open must be called synchronously from the
// user action; it returns ok=false when the open is blocked.
type Browser interface {
	Open() (Window, bool)
	// Navigate sends the current context to target.
	Navigate(target string) error
}

// Stager produces a token for a cart.
type Stager interface {
	Stage(ctx context.Context, c *cart.Cart) (staging.Token, error)
}

// Result describes a completed launch.
type Result struct {
	Token staging.Token
	URL   string
	// Blocked is true when the window could not be opened up front.
	Blocked bool
}

// Launcher runs the placeholder, stage, redirect protocol.
type Launcher struct {
	base    *url.URL
	browser Browser
	logger  *slog.Logger
}

// NewLauncher builds a launcher whose preview links are rooted at baseURL.
func NewLauncher(baseURL string, browser Browser, logger *slog.Logger) (*Launcher, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "preview", "new launcher", "invalid base url "+baseURL, err)
	}
	if browser == nil {
		return nil, services.Wrap(services.ErrConfiguration, "preview", "new launcher", "browser is required", nil)
	}
	return &Launcher{base: base, browser: browser, logger: logging.NewComponentLogger(logger, "preview")}, nil
}

// Launch stages c and shows the preview. On staging failure the placeholder
// window is closed and the staging error is returned.
func (l *Launcher) Launch(ctx context.Context, stager Stager, c *cart.Cart, prefill Prefill) (Result, error) {
	if c == nil || c.Empty() {
		return Result{}, services.Wrap(services.ErrValidation, "preview", "launch", "cart is empty", nil)
	}

	window, opened := l.browser.Open()
	if opened {
		if err := window.WritePlaceholder(PlaceholderHTML); err != nil {
			l.logger.Debug("placeholder write failed", logging.Error(err))
		}
	}

	token, err := stager.Stage(ctx, c)
	if err != nil {
		if opened {
			if closeErr := window.Close(); closeErr != nil {
				l.logger.Debug("placeholder close failed", logging.Error(closeErr))
			}
		}
		return Result{}, err
	}

	target := PreviewURL(l.base, token, prefill)
	result := Result{Token: token, URL: target, Blocked: !opened}

	if opened {
		if err := window.Navigate(target); err != nil {
			_ = window.Close()
			return result, services.Wrap(services.ErrTransient, "preview", "launch", "navigate preview window", err)
		}
		l.logger.Info("preview opened",
			logging.String(logging.FieldToken, string(token)),
			logging.String(logging.FieldEventType, "preview_opened"),
		)
		return result, nil
	}

	if err := l.browser.Navigate(target); err != nil {
		logging.WarnWithContext(l.logger, "preview navigation blocked", "preview_blocked",
			logging.String(logging.FieldToken, string(token)),
			logging.String("url", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "allow popups or open the preview URL manually"),
			logging.String(logging.FieldImpact, "preview not shown automatically"),
		)
		return result, errors.Join(ErrPopupBlocked, err)
	}
	return result, nil
}
