// Package apperr defines the error taxonomy shared by the forum core and its
// HTTP surface. Callers match with errors.Is against the sentinel kinds.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrTransient       = errors.New("transient store error")
	ErrUnknown         = errors.New("unknown error")
)

// Error carries a kind, a message that is safe to show to the caller, and
// optionally the underlying cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict wraps a constraint violation caused by the current state of the
// data. Repeating the same request fails the same way.
func Conflict(cause error) error {
	return &Error{Kind: ErrConflict, Message: "the request conflicts with the current state of the data", Cause: cause}
}

// Transient wraps a retryable storage failure that outlived the retry budget.
func Transient(cause error) error {
	return &Error{Kind: ErrTransient, Message: "storage is temporarily unavailable, retry the request", Cause: cause}
}

// Unknown wraps an unexpected failure. The cause is kept for logs only.
func Unknown(cause error) error {
	return &Error{Kind: ErrUnknown, Message: "internal server error", Cause: cause}
}

// IsTyped reports whether err already belongs to the taxonomy.
func IsTyped(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Kind returns a short label for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTransient):
		return "transient"
	default:
		return "unknown"
	}
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns text that never leaks storage internals.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != ErrUnknown {
		return e.Error()
	}
	return "internal server error"
}
