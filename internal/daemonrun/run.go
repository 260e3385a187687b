package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"redline/internal/config"
	"redline/internal/daemon"
	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/notifications"
	"redline/internal/preflight"
	"redline/internal/stagecache"
	"redline/internal/submissions"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the redline daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "redlined.log")},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logStartupSnapshot(signalCtx, logger, cfg)
	pidPath := filepath.Join(cfg.Paths.LogDir, "redlined.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := submissions.Open(cfg)
	if err != nil {
		logger.Error("open submissions store", logging.Error(err))
		return err
	}

	cache, err := stagecache.Open(cfg.Paths.StagingDir, cfg.StagingTTL(), logger)
	if err != nil {
		_ = store.Close()
		return err
	}

	var sender mailer.Sender
	if cfg.MailEnabled() {
		smtp, err := mailer.NewSMTPSender(cfg, logger)
		if err != nil {
			_ = store.Close()
			return err
		}
		sender = smtp
	} else {
		logging.WarnWithContext(logger, "mail relay not configured", "mail_disabled",
			logging.String(logging.FieldErrorHint, "set [mail] host and from in config.toml"),
			logging.String(logging.FieldImpact, "email routes answer 503"),
		)
	}

	d, err := daemon.New(cfg, store, cache, sender, notifications.NewService(cfg), logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check server.bind and whether another redlined is running"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("redline daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartupSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	attrs := []any{
		logging.String(logging.FieldEventType, "startup_snapshot"),
		logging.String("bind", cfg.Server.Bind),
		logging.Bool("auth_required", cfg.Server.APIToken != ""),
		logging.Bool("mail_enabled", cfg.MailEnabled()),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Duration("staging_ttl", cfg.StagingTTL()),
	}
	for _, result := range preflight.RunAll(ctx, cfg) {
		attrs = append(attrs, logging.Bool("check_"+preflight.Slug(result.Name), result.Passed))
		if !result.Passed && !result.Optional {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
				logging.String(logging.FieldErrorHint, "run `redline preflight` for details"),
			)
		}
	}
	logger.Info("startup snapshot", attrs...)
}
