package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidSchedule     = errors.New("invalid schedule")
	ErrNotFound            = errors.New("schedule not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrConflict            = errors.New("concurrent modification")
)

// UpstreamError names the directory or ledger source that failed
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUpstreamUnavailable, e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamUnavailable, e.Err}
}

// NewUpstreamError wraps err as a failure of source
func NewUpstreamError(source string, err error) *UpstreamError {
	return &UpstreamError{Source: source, Err: err}
}

// Invalid builds an ErrInvalidSchedule with a reason
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSchedule, fmt.Sprintf(format, args...))
}

// Code returns the machine-readable code for err
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrInvalidSchedule):
		return "INVALID_SCHEDULE"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UPSTREAM_UNAVAILABLE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// HTTPStatus maps err to the response status the handler should use
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSchedule):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
