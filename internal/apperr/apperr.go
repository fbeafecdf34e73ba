// Package apperr defines the error taxonomy shared by services and handlers.
// Services return *Error values; the HTTP layer maps the kind to a status
// code and renders the message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind sentinels.  Match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrInternal     = errors.New("internal error")
)

// Error carries a kind, a human-readable message and, for validation
// failures, the individual field messages.
type Error struct {
	Kind    error
	Message string
	Details []string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Is lets errors.Is(err, apperr.ErrConflict) match on the kind while
// errors.Is(err, someCause) still walks into the wrapped cause.
func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.cause }

func newf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error     { return newf(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) *Error     { return newf(ErrConflict, format, args...) }
func InvalidState(format string, args ...any) *Error { return newf(ErrInvalidState, format, args...) }
func Forbidden(format string, args ...any) *Error    { return newf(ErrForbidden, format, args...) }
func Unauthorized(format string, args ...any) *Error { return newf(ErrUnauthorized, format, args...) }

// Validation builds a validation error with per-field details.
func Validation(msg string, details ...string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Details: details}
}

// Internal wraps an unexpected failure.  The cause is logged by the HTTP
// layer but never rendered to clients.
func Internal(cause error, format string, args ...any) *Error {
	e := newf(ErrInternal, format, args...)
	e.cause = cause
	return e
}

// HTTPStatus maps an error to the status code the API responds with.
// Anything outside the taxonomy is a 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// As extracts the *Error from a chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
