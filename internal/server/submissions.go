package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"redline/internal/api"
	"redline/internal/services"
	"redline/internal/submissions"
)

const multipartMemory = 8 << 20

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	s.limitBody(w, r)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeDomainError(w, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, "validation", "invalid multipart body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	in, err := s.submissionFromForm(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	created, err := s.recordDelivery(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromSubmission(*created))
}

func (s *Server) submissionFromForm(r *http.Request) (submissions.NewSubmission, error) {
	file, _, err := r.FormFile("artifact")
	if err != nil {
		return submissions.NewSubmission{}, services.Wrap(services.ErrValidation, "server", "persist", "artifact file is required", err)
	}
	defer file.Close()
	artifact, err := io.ReadAll(file)
	if err != nil {
		return submissions.NewSubmission{}, fmt.Errorf("read artifact: %w", err)
	}

	status, err := submissions.ParseStatus(r.FormValue("status"))
	if err != nil {
		return submissions.NewSubmission{}, services.Wrap(services.ErrValidation, "server", "persist", err.Error(), nil)
	}
	pageCount := 0
	if raw := strings.TrimSpace(r.FormValue("pageCount")); raw != "" {
		pageCount, err = strconv.Atoi(raw)
		if err != nil || pageCount < 0 {
			return submissions.NewSubmission{}, services.Wrap(services.ErrValidation, "server", "persist", "invalid pageCount", nil)
		}
	}
	if pageCount == 0 && len(artifact) > 0 {
		if n, err := s.composer.PageCount(artifact); err == nil {
			pageCount = n
		}
	}

	return submissions.NewSubmission{
		Recipient: r.FormValue("recipient"),
		Subject:   r.FormValue("subject"),
		Body:      r.FormValue("body"),
		Status:    status,
		Source:    strings.TrimSpace(r.FormValue("source")),
		FileID:    strings.TrimSpace(r.FormValue("fileId")),
		PageCount: pageCount,
		Artifact:  artifact,
	}, nil
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	var statuses []submissions.Status
	for _, value := range r.URL.Query()["status"] {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, err := submissions.ParseStatus(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
		statuses = append(statuses, status)
	}
	recs, err := s.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SubmissionList{Submissions: api.FromSubmissions(recs)})
}

func (s *Server) submissionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.Wrap(services.ErrValidation, "server", "submission id", "invalid submission id", nil)
	}
	return id, nil
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := s.submissionID(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	rec, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "not_found", "submission not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSubmission(*rec))
}

func (s *Server) handleSubmissionArtifact(w http.ResponseWriter, r *http.Request) {
	id, err := s.submissionID(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	data, err := s.store.Artifact(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeBinary(w, "application/pdf", fmt.Sprintf("submission-%d.pdf", id), data)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status != nil {
		s.writeJSON(w, http.StatusOK, s.status(r.Context()))
		return
	}
	s.writeJSON(w, http.StatusOK, s.BaseStatus(r.Context()))
}
