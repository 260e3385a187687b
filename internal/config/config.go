package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	StagingDir   string `toml:"staging_dir"`
	DocumentsDir string `toml:"documents_dir"`
	LogDir       string `toml:"log_dir"`
	DownloadDir  string `toml:"download_dir"`
}

// Server contains configuration for the backend daemon.
type Server struct {
	Bind                 string `toml:"bind"`
	PublicURL            string `toml:"public_url"`
	APIToken             string `toml:"api_token"`
	MaxUploadMiB         int    `toml:"max_upload_mib"`
	StagingTTLMinutes    int    `toml:"staging_ttl_minutes"`
	SweepIntervalSeconds int    `toml:"sweep_interval_seconds"`
}

// Client contains configuration used by the CLI when talking to a daemon.
type Client struct {
	ServerURL      string `toml:"server_url"`
	RequestTimeout int    `toml:"request_timeout"`
	APIToken       string `toml:"api_token"`
}

// Mail contains SMTP settings for outbound delivery.
type Mail struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	From      string `toml:"from"`
	TLSPolicy string `toml:"tls_policy"`
	Timeout   int    `toml:"timeout"`
}

// Notifications contains configuration for ntfy operator notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Delivered      bool   `toml:"delivered"`
	RecordFailed   bool   `toml:"record_failed"`
	Errors         bool   `toml:"errors"`
}

// Annotation contains drawing defaults for the annotation canvas.
type Annotation struct {
	BaseStrokeWidth float64 `toml:"base_stroke_width"`
	StrokeColor     string  `toml:"stroke_color"`
	WarnOnOverwrite bool    `toml:"warn_on_overwrite"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for redline.
//
// Configuration sections by subsystem:
//   - Paths: data, staging, documents, log and download directories
//   - Server: daemon bind address, token, upload limits, staging TTL
//   - Client: daemon URL and credentials used by the CLI
//   - Mail: SMTP relay used by the notify phase
//   - Notifications: ntfy operator notifications
//   - Annotation: canvas stroke defaults and session warnings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Client        Client        `toml:"client"`
	Mail          Mail          `toml:"mail"`
	Notifications Notifications `toml:"notifications"`
	Annotation    Annotation    `toml:"annotation"`
	Logging       Logging       `toml:"logging"`
}

// EnsureDirectories creates required directories for daemon operation.
// DownloadDir is created on a best-effort basis so the CLI still works when
// it points at removable storage.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.StagingDir, c.Paths.DocumentsDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DownloadDir) != "" {
		_ = os.MkdirAll(c.Paths.DownloadDir, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the submissions database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "submissions.db")
}

// StagingTTL returns how long a staged bundle stays resolvable.
func (c *Config) StagingTTL() time.Duration {
	return time.Duration(c.Server.StagingTTLMinutes) * time.Minute
}

// SweepInterval returns how often the daemon evicts expired staged bundles.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Server.SweepIntervalSeconds) * time.Second
}

// MaxUploadBytes returns the request body limit applied to staging and persist uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMiB) * 1024 * 1024
}

// ClientTimeout returns the per-request timeout used by the CLI's API client.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.RequestTimeout) * time.Second
}

// MailTimeout returns the SMTP relay timeout.
func (c *Config) MailTimeout() time.Duration {
	return time.Duration(c.Mail.Timeout) * time.Second
}

// MailEnabled reports whether an SMTP relay is configured.
func (c *Config) MailEnabled() bool {
	return strings.TrimSpace(c.Mail.Host) != ""
}
