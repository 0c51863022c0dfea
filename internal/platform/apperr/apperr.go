// Package apperr defines the application error taxonomy shared by the
// domain services and translated to HTTP responses at the handler boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")
)

// Error carries a kind, a client-safe message and an optional wrapped cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match against the sentinel kinds.
func (e *Error) Is(target error) bool { return e.Kind == target }

func NotFound(resource string) *Error {
	return &Error{Kind: ErrNotFound, Message: resource + " not found"}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: ErrForbidden, Message: message}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal server error", Err: err}
}

// HTTPStatus maps an error to the status code the REST layer responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Body is the client-facing JSON error payload.
type Body struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ToBody builds the client payload. Internal causes are hidden; only the
// client-safe message is exposed.
func ToBody(err error) Body {
	var appErr *Error
	if errors.As(err, &appErr) {
		kind := "internal"
		switch appErr.Kind {
		case ErrNotFound:
			kind = "not_found"
		case ErrValidation:
			kind = "validation"
		case ErrUnauthorized:
			kind = "unauthorized"
		case ErrForbidden:
			kind = "forbidden"
		}
		return Body{Message: appErr.Message, Error: kind}
	}
	return Body{Message: "internal server error", Error: "internal"}
}
