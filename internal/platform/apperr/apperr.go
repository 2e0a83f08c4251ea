// Package apperr defines the error taxonomy shared by the booking engine and
// its HTTP surface.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindBadRequest   Kind = "BAD_REQUEST"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindDependency   Kind = "DEPENDENCY_FAILURE"
	KindTimeout      Kind = "TIMEOUT"
	KindUnknown      Kind = "UNKNOWN"
)

// Error is an application error carrying a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Dependency wraps a failure from the store, payment processor or any other
// remote collaborator. Deadline overruns are reported as KindTimeout.
func Dependency(message string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: message, Err: err}
	}
	return &Error{Kind: KindDependency, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var statusByKind = map[Kind]int{
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindBadRequest:   http.StatusBadRequest,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindDependency:   http.StatusBadGateway,
	KindTimeout:      http.StatusGatewayTimeout,
	KindUnknown:      http.StatusInternalServerError,
}

// StatusCode maps err to an HTTP status code.
func StatusCode(err error) int {
	return statusByKind[KindOf(err)]
}

// ToHTTP converts err into an echo HTTP error. Internal details of dependency
// and unknown failures are not exposed to the caller.
func ToHTTP(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	var ae *Error
	if !errors.As(err, &ae) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(statusByKind[ae.Kind], ae.Message).SetInternal(err)
}
