package delivery

import (
	"errors"
	"fmt"

	"redline/internal/services"
)

// ErrInFlight rejects a second Deliver while one is running.
var ErrInFlight = errors.New("a delivery is already in progress")

// ValidationError blocks a delivery before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return services.ErrValidation }

// ErrorKind implements the services classifier.
func (e *ValidationError) ErrorKind() string { return "validation" }

// TransportError reports a failed network step. Nothing was persisted.
type TransportError struct {
	Phase string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{services.ErrTransport, e.Err} }

// ErrorKind implements the services classifier.
func (e *TransportError) ErrorKind() string { return "transport" }

// PartialFailure reports that the email went out but the submission was not
// recorded.
type PartialFailure struct {
	Recipient string
	Err       error
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("delivery succeeded, record-keeping failed: %v", e.Err)
}

func (e *PartialFailure) Unwrap() error { return e.Err }

// ErrorKind implements the services classifier.
func (e *PartialFailure) ErrorKind() string { return "partial" }
