package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"redline/internal/services"
)

// StatusError reports a non-2xx response from the daemon.
type StatusError struct {
	Operation string
	Status    int
	Message   string
	Kind      string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Operation, e.Status, e.Message)
}

// Unwrap maps the response onto the services sentinels.
func (e *StatusError) Unwrap() error {
	switch {
	case e.Kind == "expired" || e.Status == http.StatusGone:
		return services.ErrTokenExpired
	case e.Status == http.StatusNotFound:
		return services.ErrNotFound
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity || e.Status == http.StatusRequestEntityTooLarge:
		return services.ErrValidation
	case e.Status == http.StatusServiceUnavailable && e.Kind == "configuration":
		return services.ErrConfiguration
	default:
		return services.ErrTransport
	}
}

// IsUnavailable reports whether err indicates the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
