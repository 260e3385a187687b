package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"redline/internal/canvas"
	"redline/internal/cart"
	"redline/internal/delivery"
	"redline/internal/logging"
	"redline/internal/notifications"
	"redline/internal/preview"
	"redline/internal/services"
	"redline/internal/staging"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("workspace is closed")
	// ErrStaging rejects a second preview while staging runs.
	ErrStaging = errors.New("a preview is already being prepared")
)

// OverwriteNotice is shown once per session when a saved page is replaced.
const OverwriteNotice = "Saving a page again replaces its earlier capture."

// Backend is the daemon API a session talks to. *api.Client satisfies it.
type Backend interface {
	staging.Transport
	delivery.Backend
}

// Options configures a Workspace.
type Options struct {
	FileID    string
	Backend   Backend
	Browser   preview.Browser
	PublicURL string
	Settings  Settings
	Confirmer cart.Confirmer
	Notifier  delivery.Notifier
	Navigator delivery.Navigator
	Alerts    notifications.Service
	Logger    *slog.Logger
}

// Workspace is one annotation session. Canvas input is single-writer.
// Preview and Send may run alongside SavePage: each works from a snapshot of
// the cart taken when it starts, and their guards reject re-entry.
type Workspace struct {
	canvas   *canvas.Canvas
	cart     *cart.Cart
	settings Settings

	stager       *staging.Client
	launcher     *preview.Launcher
	orchestrator *delivery.Orchestrator
	confirmer    cart.Confirmer
	notifier     delivery.Notifier
	logger       *slog.Logger

	stageGuard guard
	closed     atomic.Bool
}

// Open starts a session with an empty cart.
func Open(opts Options) (*Workspace, error) {
	if opts.Backend == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workspace", "open", "backend is required", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "workspace")
	notifier := opts.Notifier
	if notifier == nil {
		notifier = delivery.NotifierFunc(func(delivery.Severity, string) {})
	}

	var launcher *preview.Launcher
	if opts.Browser != nil {
		var err error
		launcher, err = preview.NewLauncher(opts.PublicURL, opts.Browser, opts.Logger)
		if err != nil {
			return nil, err
		}
	}

	ws := &Workspace{
		canvas:    canvas.New(opts.Settings.Canvas),
		cart:      cart.NewForFile(opts.FileID),
		settings:  opts.Settings,
		stager:    staging.NewClient(opts.Backend, opts.Logger),
		launcher:  launcher,
		confirmer: opts.Confirmer,
		notifier:  notifier,
		logger:    logger.With(logging.String("file_id", opts.FileID)),
		orchestrator: delivery.New(delivery.Options{
			Backend:   opts.Backend,
			Notifier:  notifier,
			Navigator: opts.Navigator,
			Alerts:    opts.Alerts,
			Logger:    opts.Logger,
		}),
	}
	return ws, nil
}

// Canvas returns the overlay for the current page.
func (w *Workspace) Canvas() *canvas.Canvas { return w.canvas }

// Cart returns the session's captures.
func (w *Workspace) Cart() *cart.Cart { return w.cart }

// ShowPage binds the canvas to page, discarding unsaved strokes.
func (w *Workspace) ShowPage(page int, intrinsic canvas.Size, displayed canvas.Rect, zoom float64) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if err := w.canvas.Bind(page, intrinsic); err != nil {
		return err
	}
	return w.canvas.Layout(displayed, zoom)
}

// SavePage captures the overlay of the bound page into the cart, replacing
// any earlier capture of that page.
func (w *Workspace) SavePage() error {
	if w.closed.Load() {
		return ErrClosed
	}
	page := w.canvas.Page()
	raster, err := w.canvas.Snapshot()
	if err != nil {
		w.notifier.Notify(delivery.SeverityError, "Open a page before saving.")
		return err
	}
	replaced, err := w.cart.Save(page, raster)
	if err != nil {
		w.notifier.Notify(delivery.SeverityError, err.Error())
		return err
	}
	if replaced && w.settings.takeOverwriteWarning() {
		w.notifier.Notify(delivery.SeverityWarning, OverwriteNotice)
	}
	w.logger.Debug("page saved",
		logging.Int("page", page),
		logging.Bool("replaced", replaced),
		logging.Int("cart_size", w.cart.Size()),
	)
	w.notifier.Notify(delivery.SeverityInfo, fmt.Sprintf("Page %d saved (%d in cart).", page, w.cart.Size()))
	return nil
}

// ClearCart empties the cart after confirmation and reports whether it did.
func (w *Workspace) ClearCart() bool {
	if w.closed.Load() {
		return false
	}
	return w.cart.Clear(w.confirmer)
}

// Preview stages the cart and shows it in a new browsing context.
func (w *Workspace) Preview(ctx context.Context, prefill preview.Prefill) (preview.Result, error) {
	if w.closed.Load() {
		return preview.Result{}, ErrClosed
	}
	if w.launcher == nil {
		return preview.Result{}, services.Wrap(services.ErrConfiguration, "workspace", "preview", "no browser configured", nil)
	}
	if w.cart.Empty() {
		err := services.Wrap(services.ErrValidation, "workspace", "preview", "cart is empty", nil)
		w.notifier.Notify(delivery.SeverityError, "Save at least one page before previewing.")
		return preview.Result{}, err
	}
	if !w.stageGuard.acquire() {
		return preview.Result{}, ErrStaging
	}
	defer w.stageGuard.release()

	result, err := w.launcher.Launch(ctx, w.stager, w.cart, prefill)
	switch {
	case err == nil:
	case errors.Is(err, preview.ErrPopupBlocked):
		w.notifier.Notify(delivery.SeverityWarning, "Popups are blocked. Open the preview at "+result.URL)
	default:
		w.notifier.Notify(delivery.SeverityError, "Could not prepare the preview: "+err.Error())
	}
	return result, err
}

// Staging reports whether a preview is being prepared.
func (w *Workspace) Staging() bool { return w.stageGuard.held() }

// Sending reports whether a delivery is running.
func (w *Workspace) Sending() bool { return w.orchestrator.InFlight() }

// Send delivers the cart directly. A delivery that has started completes
// even if the workspace is closed.
func (w *Workspace) Send(ctx context.Context, msg delivery.Message) (delivery.Outcome, error) {
	if w.closed.Load() {
		return delivery.Outcome{}, ErrClosed
	}
	return w.orchestrator.Deliver(ctx, delivery.NewCartSource(w.cart), msg)
}

// Close abandons the overlay. A delivery in flight is not cancelled.
func (w *Workspace) Close() {
	if !w.closed.CompareAndSwap(false, true) {
		return
	}
	w.canvas.Clear()
	w.logger.Debug("workspace closed", logging.Bool("delivery_in_flight", w.orchestrator.InFlight()))
}
