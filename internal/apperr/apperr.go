// Package apperr defines the error kinds used by every handler and the
// single translator that turns them into HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/easybuy/backend/internal/logging"
)

type Kind int

const (
	Validation Kind = iota
	Conflict
	NotFound
	Auth
	Forbidden
	InvalidSignature
	Upstream
)

func (k Kind) status() int {
	switch k {
	case Validation, InvalidSignature:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Auth:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Response is the envelope every error (and most success bodies) use.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HTTPErrorHandler funnels every handler error into one place. apperr errors
// map through their kind, echo.HTTPError keeps its status, anything else
// becomes a generic 500 so internals never leak to the client.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var ae *Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ae):
		status = ae.Kind.status()
		message = ae.Message
	case errors.As(err, &he):
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request_failed", "status", status, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, Response{Success: false, Message: message})
}
