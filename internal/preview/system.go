package preview

import (
	"context"
	"fmt"
	"html"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"redline/internal/deps"
)

// Opener launches the desktop handler for a file or URL.
type Opener func(ctx context.Context, target string) error

// DefaultOpener uses xdg-open on Linux and open on macOS.
func DefaultOpener(ctx context.Context, target string) error {
	name := deps.OpenerCommand(runtime.GOOS)
	cmd := exec.CommandContext(ctx, name, target)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// SystemBrowser opens previews in the desktop browser. The placeholder is a
// local page that reloads itself until it is rewritten into a redirect or a
// cancellation notice, so the tab opened up front is the one that ends up on
// the preview. A placeholder is removed once it has served its redirect or
// notice; Wait blocks until every removal has run.
type SystemBrowser struct {
	Dir    string
	Opener Opener
	// Refresh is how often the placeholder reloads itself.
	Refresh time.Duration
	// Linger is how long a finished placeholder stays on disk. Zero means
	// three refresh intervals.
	Linger time.Duration

	pending sync.WaitGroup
}

// Open writes an empty placeholder file and opens it.
func (b *SystemBrowser) Open() (Window, bool) {
	file, err := os.CreateTemp(b.Dir, "redline-preview-*.html")
	if err != nil {
		return nil, false
	}
	_ = file.Close()
	w := &fileWindow{path: file.Name(), refresh: b.refresh(), linger: b.linger(), pending: &b.pending}
	if err := w.write(pendingPage(w.refresh, "")); err != nil {
		_ = os.Remove(w.path)
		return nil, false
	}
	if err := b.opener()(context.Background(), w.path); err != nil {
		_ = os.Remove(w.path)
		return nil, false
	}
	return w, true
}

// Navigate opens target directly.
func (b *SystemBrowser) Navigate(target string) error {
	return b.opener()(context.Background(), target)
}

// Wait blocks until every finished placeholder has been removed.
func (b *SystemBrowser) Wait() {
	b.pending.Wait()
}

func (b *SystemBrowser) opener() Opener {
	if b.Opener != nil {
		return b.Opener
	}
	return DefaultOpener
}

func (b *SystemBrowser) refresh() time.Duration {
	if b.Refresh > 0 {
		return b.Refresh
	}
	return time.Second
}

func (b *SystemBrowser) linger() time.Duration {
	if b.Linger > 0 {
		return b.Linger
	}
	return 3 * b.refresh()
}

type fileWindow struct {
	path    string
	refresh time.Duration
	linger  time.Duration
	pending *sync.WaitGroup
	retired sync.Once
}

func (w *fileWindow) WritePlaceholder(body string) error {
	return w.write(pendingPage(w.refresh, body))
}

func (w *fileWindow) Navigate(target string) error {
	defer w.retire()
	escaped := html.EscapeString(target)
	page := `<!doctype html><html><head><meta charset="utf-8">` +
		`<meta http-equiv="refresh" content="0;url=` + escaped + `"></head>` +
		`<body><a href="` + escaped + `">Open preview</a></body></html>`
	return w.write(page)
}

// Close replaces the placeholder with a notice; the open tab stops reloading.
func (w *fileWindow) Close() error {
	defer w.retire()
	return w.write(`<!doctype html><html><head><meta charset="utf-8"><title>Preview cancelled</title></head>` +
		`<body style="font-family:sans-serif;padding:2rem">Preview could not be prepared. You can close this tab.</body></html>`)
}

// retire removes the placeholder after the open tab has had time to load its
// final content.
func (w *fileWindow) retire() {
	w.retired.Do(func() {
		w.pending.Add(1)
		time.AfterFunc(w.linger, func() {
			defer w.pending.Done()
			_ = os.Remove(w.path)
			_ = os.Remove(w.path + ".tmp")
		})
	})
}

func (w *fileWindow) Path() string { return w.path }

func (w *fileWindow) write(page string) error {
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(page), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Clean(w.path))
}

func pendingPage(refresh time.Duration, body string) string {
	if body == "" {
		body = PlaceholderHTML
	}
	secs := int(refresh.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf(`<!-- pending --><meta http-equiv="refresh" content="%d">%s`, secs, body)
}
