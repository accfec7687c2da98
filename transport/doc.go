// Package transport is the single outbound-call path for the Heavy Ride
// client. Every request — auth, resource CRUD, settings, wallet — goes
// through [Transport.Do], which applies the cross-cutting behavior the
// backend contract demands: per-request body encoding, locale and bearer
// header injection, supersession of in-flight requests sharing a key, a
// fixed dispatch timeout, and centralized 401 session teardown.
//
// The package performs no retries and never swallows errors; failures are
// surfaced as [*APIError] values carrying the status code, the server
// message when one was provided, and flags distinguishing cancellation and
// timeout from genuine faults. Cancellations are never user-facing errors —
// callers check [IsCancellation] and suppress notification.
package transport
