package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"redline/internal/api"
	"redline/internal/logging"
	"redline/internal/services"
)

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	var req api.StageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	artifact, err := s.composePages(req.FileID, req.Pages)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	bundle, err := s.cache.Put(r.Context(), req.FileID, pageNumbers(req.Pages), artifact)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "staging failed", "staging_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space in paths.staging_dir"),
			logging.String(logging.FieldImpact, "preview could not be prepared"),
		)
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.StageResponse{
		Token:     bundle.Token,
		Pages:     bundle.Pages,
		ExpiresAt: api.FormatTime(bundle.ExpiresAt),
	})
}

func (s *Server) handleStagedArtifact(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	artifact, _, err := s.cache.Artifact(token)
	if err != nil {
		logging.WithContext(services.WithToken(r.Context(), token), s.logger).
			Debug("staged artifact unavailable", logging.Error(err))
		s.writeDomainError(w, err)
		return
	}
	s.writeBinary(w, "application/pdf", attachmentName, artifact)
}
