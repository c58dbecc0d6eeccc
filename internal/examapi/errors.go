package examapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors reported by the exam API, matched with errors.Is.
var (
	ErrUnauthorized = errors.New("exam api: unauthorized")
	ErrNotFound     = errors.New("exam api: not found")
	ErrValidation   = errors.New("exam api: validation error")
	ErrServer       = errors.New("exam api: server error")
)

// APIError is a non-2xx response. It unwraps to one of the sentinel errors above.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (status %d)", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (status %d): %s", e.kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// newAPIError classifies an HTTP status code.
func newAPIError(status int, message string) *APIError {
	var kind error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrUnauthorized
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status >= 500:
		kind = ErrServer
	default:
		kind = ErrValidation
	}
	return &APIError{StatusCode: status, Message: message, kind: kind}
}
