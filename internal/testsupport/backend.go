package testsupport

import (
	"net/http/httptest"
	"testing"

	"redline/internal/api"
	"redline/internal/compose"
	"redline/internal/config"
	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/server"
	"redline/internal/stagecache"
	"redline/internal/submissions"
)

// Backend is a running daemon HTTP surface backed by temp storage and an SMTP
// sink.
type Backend struct {
	Config *config.Config
	Store  *submissions.Store
	Cache  *stagecache.Cache
	SMTP   *SMTPServer
	HTTP   *httptest.Server
	Client *api.Client
}

// NewBackend starts a Backend. Options apply to the generated config before
// the mail sink and server URL are filled in.
func NewBackend(t testing.TB, opts ...ConfigOption) *Backend {
	t.Helper()

	smtp := NewSMTPServer(t)
	opts = append([]ConfigOption{WithMail(smtp.Host(), smtp.Port())}, opts...)
	cfg := NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	store := MustOpenStore(t, cfg)
	cache, err := stagecache.Open(cfg.Paths.StagingDir, cfg.StagingTTL(), logging.NewNop())
	if err != nil {
		t.Fatalf("stagecache.Open: %v", err)
	}
	sender, err := mailer.NewSMTPSender(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("mailer.NewSMTPSender: %v", err)
	}
	srv, err := server.New(server.Dependencies{
		Config:   cfg,
		Store:    store,
		Cache:    cache,
		Composer: compose.New(),
		Mailer:   sender,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	cfg.Server.PublicURL = httpSrv.URL
	cfg.Client.ServerURL = httpSrv.URL
	client, err := api.NewClient(httpSrv.URL, cfg.Client.APIToken, cfg.ClientTimeout())
	if err != nil {
		t.Fatalf("api.NewClient: %v", err)
	}
	return &Backend{
		Config: cfg,
		Store:  store,
		Cache:  cache,
		SMTP:   smtp,
		HTTP:   httpSrv,
		Client: client,
	}
}
