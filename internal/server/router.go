package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.accessLog)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(s.cfg.Server.APIToken))
		r.Get("/status", s.handleStatus)

		r.Get("/files/{fileID}/pages/{page}", s.handlePage)
		r.Post("/files/{fileID}/email", s.handleDirectEmail)

		r.Post("/staging", s.handleStage)
		r.Get("/staging/{token}", s.handleStagedArtifact)
		r.Post("/staging/{token}/email", s.handleStagedEmail)

		r.Post("/submissions", s.handleCreateSubmission)
		r.Get("/submissions", s.handleListSubmissions)
		r.Get("/submissions/{id}", s.handleGetSubmission)
		r.Get("/submissions/{id}/artifact", s.handleSubmissionArtifact)
	})

	r.Get("/preview/{token}", s.handlePreviewPage)
	r.Get("/preview/{token}/artifact", s.handleStagedArtifact)
	r.Post("/preview/{token}/send", s.handlePreviewSend)
	return r
}
