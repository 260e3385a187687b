package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"redline/internal/api"
	"redline/internal/compose"
	"redline/internal/config"
	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/notifications"
	"redline/internal/server"
	"redline/internal/stagecache"
	"redline/internal/submissions"
)

// Daemon owns the HTTP server and the staging sweeper and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *submissions.Store
	cache    *stagecache.Cache
	notifier notifications.Service
	server   *server.Server
	mailOn   bool

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon. sender may be nil when mail is not configured.
func New(cfg *config.Config, store *submissions.Store, cache *stagecache.Cache, sender mailer.Sender, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || cache == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, stage cache, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "redlined.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		cache:    cache,
		notifier: notifier,
		mailOn:   sender != nil,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	srv, err := server.New(server.Dependencies{
		Config:   cfg,
		Store:    store,
		Cache:    cache,
		Composer: compose.New(),
		Mailer:   sender,
		Notifier: notifier,
		Logger:   logger,
		Status:   d.Status,
	})
	if err != nil {
		return nil, err
	}
	d.server = srv
	return d, nil
}

// Start acquires the daemon lock, starts the API server and the sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another redline daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.server.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runSweeper(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("redline daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.server.Addr()),
		logging.Duration("staging_ttl", d.cache.TTL()),
	)
	return nil
}

// Stop stops background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("redline daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the API server's bound address while running.
func (d *Daemon) Addr() string {
	return d.server.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.Status {
	status := d.server.BaseStatus(ctx)
	status.Running = d.running.Load()
	status.PID = os.Getpid()
	status.LockFilePath = d.lockPath
	status.MailEnabled = d.mailOn
	return status
}

// TestNotification publishes a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func (d *Daemon) runSweeper(ctx context.Context) {
	interval := d.cfg.SweepInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Daemon) sweep(ctx context.Context) {
	result := d.cache.Sweep(ctx)
	if len(result.Removed) > 0 {
		d.logger.Info("staged bundles evicted",
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "staging_sweep"),
		)
	}
	for _, sweepErr := range result.Errors {
		logging.WarnWithContext(d.logger, "staged bundle eviction failed", "staging_sweep_failed",
			logging.String("path", sweepErr.Path),
			logging.Error(sweepErr.Error),
			logging.String(logging.FieldErrorHint, "check permissions on paths.staging_dir"),
			logging.String(logging.FieldImpact, "expired bundles keep using disk space"),
		)
	}
}
