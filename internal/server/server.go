package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"redline/internal/api"
	"redline/internal/compose"
	"redline/internal/config"
	"redline/internal/logging"
	"redline/internal/mailer"
	"redline/internal/notifications"
	"redline/internal/services"
	"redline/internal/stagecache"
	"redline/internal/submissions"
)

// Dependencies wires the collaborators used by handlers. Mailer may be nil when
// mail is not configured; email routes then answer 503.
type Dependencies struct {
	Config   *config.Config
	Store    *submissions.Store
	Cache    *stagecache.Cache
	Composer *compose.Composer
	Mailer   mailer.Sender
	Notifier notifications.Service
	Logger   *slog.Logger
	// Status overrides the default status report, letting the daemon add
	// process details.
	Status func(ctx context.Context) api.Status
}

// Server owns the router and the listening http.Server.
type Server struct {
	cfg      *config.Config
	store    *submissions.Store
	cache    *stagecache.Cache
	composer *compose.Composer
	mailer   mailer.Sender
	notifier notifications.Service
	logger   *slog.Logger
	status   func(ctx context.Context) api.Status

	// previewSends holds the tokens with a preview send in progress.
	previewSends sync.Map

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New validates deps and builds the router.
func New(deps Dependencies) (*Server, error) {
	if deps.Config == nil || deps.Store == nil || deps.Cache == nil {
		return nil, errors.New("server requires config, store, and stage cache")
	}
	s := &Server{
		cfg:      deps.Config,
		store:    deps.Store,
		cache:    deps.Cache,
		composer: deps.Composer,
		mailer:   deps.Mailer,
		notifier: deps.Notifier,
		logger:   logging.NewComponentLogger(deps.Logger, "api-server"),
		status:   deps.Status,
	}
	if s.composer == nil {
		s.composer = compose.New()
	}
	if s.notifier == nil {
		s.notifier = notifications.NewService(nil)
	}
	s.handler = s.routes()
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(s.cfg),
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// composeMargin is the time left for PDF composition and writing the response
// once the relay has answered.
const composeMargin = 30 * time.Second

// writeTimeout bounds a response. Email routes dial the relay and then
// transfer the message, each under the mail timeout, so the response
// deadline must outlast both.
func writeTimeout(cfg *config.Config) time.Duration {
	return 2*cfg.MailTimeout() + composeMargin
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Server.Bind)
	if bind == "" {
		return services.Wrap(services.ErrConfiguration, "server", "start", "server.bind is empty", nil)
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth_required", s.cfg.Server.APIToken != ""),
		logging.Bool("mail_enabled", s.mailer != nil),
	)
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

// BaseStatus reports store and cache state without process details.
func (s *Server) BaseStatus(ctx context.Context) api.Status {
	count, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn("submission count failed", logging.Error(err))
	}
	return api.Status{
		Running:       true,
		DatabasePath:  s.store.Path(),
		StagedBundles: s.cache.Len(),
		MailEnabled:   s.mailer != nil,
		Submissions:   count,
	}
}
