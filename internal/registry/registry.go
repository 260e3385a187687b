package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"redline/internal/api"
	"redline/internal/delivery"
	"redline/internal/fileutil"
	"redline/internal/logging"
	"redline/internal/preview"
	"redline/internal/services"
)

// Backend is the subset of the daemon API the registry reads from.
type Backend interface {
	ListSubmissions(ctx context.Context) ([]api.Submission, error)
	GetSubmission(ctx context.Context, id int64) (api.Submission, error)
	FetchSubmissionArtifact(ctx context.Context, id int64) ([]byte, error)
}

// Handle is a viewable copy of one artifact.
type Handle struct {
	ID   int64
	Path string

	once sync.Once
	err  error
}

// Release removes the backing file. It is safe to call more than once.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	h.once.Do(func() {
		if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
			h.err = err
		}
	})
	return h.err
}

// Options configures a Registry. Only Backend is required.
type Options struct {
	Backend Backend
	// Opener shows a handle; defaults to preview.DefaultOpener.
	Opener preview.Opener
	// TempDir holds handles; defaults to os.TempDir().
	TempDir  string
	Notifier delivery.Notifier
	Logger   *slog.Logger
}

// Registry is the submission list/view/download surface.
type Registry struct {
	backend  Backend
	opener   preview.Opener
	tempDir  string
	notifier delivery.Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	current *Handle
	handles map[*Handle]struct{}
}

// New builds a Registry.
func New(opts Options) *Registry {
	r := &Registry{
		backend:  opts.Backend,
		opener:   opts.Opener,
		tempDir:  opts.TempDir,
		notifier: opts.Notifier,
		logger:   logging.NewComponentLogger(opts.Logger, "registry"),
		handles:  make(map[*Handle]struct{}),
	}
	if r.opener == nil {
		r.opener = preview.DefaultOpener
	}
	if r.tempDir == "" {
		r.tempDir = os.TempDir()
	}
	if r.notifier == nil {
		r.notifier = delivery.NotifierFunc(func(delivery.Severity, string) {})
	}
	return r
}

// List returns submission summaries in backend order (newest first).
func (r *Registry) List(ctx context.Context) ([]api.Submission, error) {
	items, err := r.backend.ListSubmissions(ctx)
	if err != nil {
		r.fail("list submissions", err)
		return nil, err
	}
	return items, nil
}

// Get returns one submission summary.
func (r *Registry) Get(ctx context.Context, id int64) (api.Submission, error) {
	item, err := r.backend.GetSubmission(ctx, id)
	if err != nil {
		r.fail(fmt.Sprintf("load submission #%d", id), err)
		return api.Submission{}, err
	}
	return item, nil
}

// View fetches the artifact for id and opens it. The previously viewed handle
// is released.
func (r *Registry) View(ctx context.Context, id int64) (*Handle, error) {
	data, err := r.backend.FetchSubmissionArtifact(ctx, id)
	if err != nil {
		r.fail(fmt.Sprintf("load submission #%d", id), err)
		return nil, err
	}
	path, err := fileutil.TempFile(r.tempDir, fmt.Sprintf("submission-%d-*.pdf", id), data)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "registry", "view", "write handle", err)
		r.fail(fmt.Sprintf("open submission #%d", id), err)
		return nil, err
	}
	handle := &Handle{ID: id, Path: path}

	r.mu.Lock()
	previous := r.current
	r.current = handle
	r.handles[handle] = struct{}{}
	if previous != nil {
		delete(r.handles, previous)
	}
	r.mu.Unlock()
	if err := previous.Release(); err != nil {
		r.logger.Debug("release previous handle failed", logging.Error(err))
	}

	if err := r.opener(ctx, path); err != nil {
		logging.WarnWithContext(r.logger, "viewer launch failed", "registry_view_failed",
			logging.Int64(logging.FieldSubmissionID, id),
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "open the file manually"),
			logging.String(logging.FieldImpact, "artifact not shown"),
		)
		return handle, services.Wrap(services.ErrTransient, "registry", "view", "launch viewer", err)
	}
	r.logger.Info("submission opened",
		logging.Int64(logging.FieldSubmissionID, id),
		logging.String(logging.FieldEventType, "submission_viewed"),
	)
	return handle, nil
}

// Download writes the artifact for id to dir/submission-<id>.pdf.
func (r *Registry) Download(ctx context.Context, id int64, dir string) (string, error) {
	data, err := r.backend.FetchSubmissionArtifact(ctx, id)
	if err != nil {
		r.fail(fmt.Sprintf("download submission #%d", id), err)
		return "", err
	}
	target := filepath.Join(dir, FileName(id))
	digest, err := fileutil.WriteFile(target, data)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "registry", "download", "write "+target, err)
		r.fail(fmt.Sprintf("download submission #%d", id), err)
		return "", err
	}
	r.logger.Info("submission downloaded",
		logging.Int64(logging.FieldSubmissionID, id),
		logging.String("path", target),
		logging.String("sha256", digest),
		logging.String(logging.FieldEventType, "submission_downloaded"),
	)
	return target, nil
}

// Close releases every outstanding handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for h := range r.handles {
		handles = append(handles, h)
	}
	r.handles = make(map[*Handle]struct{})
	r.current = nil
	r.mu.Unlock()

	var firstErr error
	for _, h := range handles {
		if err := h.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FileName is the download name for a submission artifact.
func FileName(id int64) string {
	return fmt.Sprintf("submission-%d.pdf", id)
}

func (r *Registry) fail(action string, err error) {
	logging.WarnWithContext(r.logger, action+" failed", "registry_fetch_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.String(logging.FieldErrorHint, "check that the daemon is reachable"),
		logging.String(logging.FieldImpact, "submission not available"),
	)
	r.notifier.Notify(delivery.SeverityError, fmt.Sprintf("Could not %s: %v", action, err))
}
