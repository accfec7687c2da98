package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrRequestSuperseded is the cancellation cause installed when a newer
// request with the same key preempts an outstanding one.
var ErrRequestSuperseded = errors.New("request superseded by newer call")

// ErrRequestTimeout is the cause installed when the fixed dispatch ceiling
// elapses before the request settles.
var ErrRequestTimeout = errors.New("request timed out")

// APIError is the structured failure every transport operation resolves to.
// Exactly one of the flag/status fields describes the failure class:
// Canceled for supersession or caller aborts, TimedOut for the dispatch
// ceiling, a non-zero StatusCode for server rejections, and a bare Err for
// transport faults.
type APIError struct {
	// StatusCode is the HTTP status when the server answered, else 0.
	StatusCode int
	// Message is the server-provided message when one was present.
	Message string
	// Canceled marks supersession or explicit caller aborts. Callers must
	// never surface canceled requests as user-visible errors.
	Canceled bool
	// TimedOut marks the fixed per-request ceiling elapsing.
	TimedOut bool
	// Err is the underlying cause, when any.
	Err error
}

func (e *APIError) Error() string {
	switch {
	case e.Canceled:
		return "request canceled"
	case e.TimedOut:
		return "request timed out"
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("api error %d", e.StatusCode)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "request failed"
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsCancellation reports whether err represents a superseded or aborted
// request rather than a genuine failure.
func IsCancellation(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Canceled
	}
	return errors.Is(err, ErrRequestSuperseded) || errors.Is(err, context.Canceled)
}

// IsTimeout reports whether err represents the fixed dispatch ceiling
// elapsing.
func IsTimeout(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.TimedOut
	}
	return errors.Is(err, ErrRequestTimeout)
}

// IsUnauthorized reports whether err carries a 401 status.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Message extracts the server-provided message from err, falling back to the
// given default. Used when recording human-readable failure messages.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
