package heavyride

import (
	"errors"

	"github.com/teamqeematech/heavyride-go/transport"
)

var (
	// ErrInvalidAuthResponse is returned when a login or registration response
	// yields no usable token or user object under any recognized shape.
	ErrInvalidAuthResponse = errors.New("auth response missing token or user")
	// ErrNotAuthenticated is returned by operations that require a committed
	// session when none is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrClientClosed is returned by operations invoked after Close.
	ErrClientClosed = errors.New("client closed")

	// ErrRequestSuperseded reports that a newer request with the same
	// method+path key replaced this one.
	ErrRequestSuperseded = transport.ErrRequestSuperseded
	// ErrRequestTimeout reports that the fixed dispatch ceiling elapsed.
	ErrRequestTimeout = transport.ErrRequestTimeout
)

// APIError is the structured error surfaced by every failed request.
//
//	Docs: docs/transport.md
type APIError = transport.APIError

// IsCancellation reports whether err settled as superseded or aborted rather
// than failed. Callers use it to suppress error UI for stale requests.
func IsCancellation(err error) bool { return transport.IsCancellation(err) }

// IsTimeout reports whether err settled by exceeding the dispatch ceiling.
func IsTimeout(err error) bool { return transport.IsTimeout(err) }

// IsUnauthorized reports whether err carries a 401 status.
func IsUnauthorized(err error) bool { return transport.IsUnauthorized(err) }

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int { return transport.StatusCode(err) }

// ErrorMessage extracts the server-provided message from err, falling back to
// the given default.
func ErrorMessage(err error, fallback string) string { return transport.Message(err, fallback) }
