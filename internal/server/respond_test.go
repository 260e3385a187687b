package server

import (
	"errors"
	"net/http"
	"testing"

	"redline/internal/services"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{services.Wrap(services.ErrValidation, "x", "y", "bad", nil), http.StatusBadRequest, "validation"},
		{services.Wrap(services.ErrTokenExpired, "x", "y", "gone", nil), http.StatusNotFound, "expired"},
		{services.Wrap(services.ErrNotFound, "x", "y", "missing", nil), http.StatusNotFound, "not_found"},
		{services.Wrap(services.ErrConfiguration, "x", "y", "no mail", nil), http.StatusServiceUnavailable, "configuration"},
		{services.Wrap(services.ErrTransport, "x", "y", "relay", nil), http.StatusBadGateway, "transport"},
		{services.Wrap(services.ErrTransient, "x", "y", "full", nil), http.StatusServiceUnavailable, "transient"},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "validation"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		status, kind := mapDomainError(tc.err)
		if status != tc.status || kind != tc.kind {
			t.Errorf("mapDomainError(%v) = %d %q, want %d %q", tc.err, status, kind, tc.status, tc.kind)
		}
	}
}
