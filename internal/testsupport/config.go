package testsupport

import (
	"path/filepath"
	"testing"

	"redline/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.StagingDir = filepath.Join(base, "staging")
	cfgVal.Paths.DocumentsDir = filepath.Join(base, "documents")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.PublicURL = "http://127.0.0.1:0"
	cfgVal.Client.ServerURL = "http://127.0.0.1:0"
	cfgVal.Client.RequestTimeout = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken sets matching server and client bearer tokens.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
		b.cfg.Client.APIToken = token
	}
}

// WithMail points the mail section at host:port with a sender address.
func WithMail(host string, port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mail.Host = host
		b.cfg.Mail.Port = port
		b.cfg.Mail.From = "reviews@example.com"
		b.cfg.Mail.TLSPolicy = "none"
		b.cfg.Mail.Timeout = 5
	}
}

// WithServerURL sets both the public and client URLs.
func WithServerURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.PublicURL = url
		b.cfg.Client.ServerURL = url
	}
}

// WithStagingTTL overrides the staged bundle lifetime in minutes.
func WithStagingTTL(minutes int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.StagingTTLMinutes = minutes
	}
}
