package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"

	"redline/internal/api"
	"redline/internal/compose"
	"redline/internal/services"
)

var fileIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validFileID(fileID string) error {
	if !fileIDPattern.MatchString(fileID) {
		return services.Wrap(services.ErrValidation, "server", "file id", fmt.Sprintf("invalid file id %q", fileID), nil)
	}
	return nil
}

// pagePath locates the rendered image for a document page.
func (s *Server) pagePath(fileID string, page int) string {
	return filepath.Join(s.cfg.Paths.DocumentsDir, fileID, fmt.Sprintf("page-%d.png", page))
}

func (s *Server) readPage(fileID string, page int) ([]byte, error) {
	if err := validFileID(fileID); err != nil {
		return nil, err
	}
	if page <= 0 {
		return nil, services.Wrap(services.ErrValidation, "server", "read page", "page must be positive", nil)
	}
	data, err := os.ReadFile(s.pagePath(fileID, page))
	if errors.Is(err, os.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "server", "read page", fmt.Sprintf("%s page %d not found", fileID, page), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read page image: %w", err)
	}
	return data, nil
}

// composePages flattens each overlay onto its page image when fileID names a
// known document and returns the PDF artifact.
func (s *Server) composePages(fileID string, pages []api.Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, services.Wrap(services.ErrValidation, "server", "compose", "at least one page is required", nil)
	}
	if fileID != "" {
		if err := validFileID(fileID); err != nil {
			return nil, err
		}
	}
	in := make([]compose.Page, 0, len(pages))
	for _, p := range pages {
		if len(p.Raster) == 0 {
			return nil, services.Wrap(services.ErrValidation, "server", "compose", fmt.Sprintf("page %d has no raster", p.Page), nil)
		}
		cp := compose.Page{Number: p.Page, Overlay: p.Raster}
		if fileID != "" && p.Page > 0 {
			base, err := s.readPage(fileID, p.Page)
			switch {
			case err == nil:
				cp.Base = base
			case !errors.Is(err, services.ErrNotFound):
				return nil, err
			}
		}
		in = append(in, cp)
	}
	return s.composer.Compose(in)
}

func pageNumbers(pages []api.Page) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.Page)
	}
	return out
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "validation", "invalid page number")
		return
	}
	data, err := s.readPage(chi.URLParam(r, "fileID"), page)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeBinary(w, "image/png", "", data)
}
