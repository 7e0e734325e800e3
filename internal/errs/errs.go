// Package errs holds the error kinds shared by the storefront and commerce clients.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTransport       = errors.New("transport error")
	ErrAuth            = errors.New("auth error")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid request")
	ErrFormat          = errors.New("format error")
	ErrUnknownUpstream = errors.New("unknown error")
)

// UpstreamError is a non-2xx answer from a remote API. It unwraps to its Kind.
type UpstreamError struct {
	Status   int
	Kind     error
	Message  string
	Extended string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("[%d] %s. See error message: %s.", e.Status, label(e.Kind), e.Message)
	if e.Extended != "" {
		msg = fmt.Sprintf("%s See extended error message: %s", msg, e.Extended)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Kind
}

func label(kind error) string {
	switch kind {
	case ErrAuth:
		return "Auth error"
	case ErrNotFound:
		return "Not found"
	case ErrValidation:
		return "Invalid request"
	default:
		return "Unknown error"
	}
}

// KindForStatus maps an upstream HTTP status to an error kind.
func KindForStatus(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrUnknownUpstream
	}
}

// Validation builds a local precondition failure.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Format builds a malformed-input failure.
func Format(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// NotFound builds a missing-resource failure.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Transport wraps a failed round trip.
func Transport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// HTTPStatus picks the status the local control panel answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTransport), errors.Is(err, ErrUnknownUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
