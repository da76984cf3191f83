package transport

import (
	"errors"
	"fmt"
)

// AbortError indicates a request was cancelled through its context before
// completing. Callers that cancel their own in-flight requests (e.g. the
// realtime sync coordinator superseding a stale push) must treat this as a
// non-failure outcome, not an error to surface.
type AbortError struct {
	// Err is the underlying context error (context.Canceled or
	// context.DeadlineExceeded).
	Err error
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	return fmt.Sprintf("strata: request aborted: %v", e.Err)
}

// Unwrap returns the underlying context error.
func (e *AbortError) Unwrap() error {
	return e.Err
}

// IsAbort reports whether err is (or wraps) an AbortError.
func IsAbort(err error) bool {
	var abort *AbortError
	return errors.As(err, &abort)
}

// APIError is returned when the server responds with a non-2xx status.
type APIError struct {
	// Method is the HTTP method of the failed request.
	Method string

	// Path is the request path relative to the base URL.
	Path string

	// Status is the HTTP response status code.
	Status int

	// Message is the server-provided error message, if any.
	Message string

	// Data carries the decoded server error payload, if any.
	Data map[string]any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("strata: %s %s failed with status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("strata: %s %s failed with status %d", e.Method, e.Path, e.Status)
}
