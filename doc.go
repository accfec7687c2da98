// Package heavyride provides the API client for the HeavyRide crane-dispatch
// backend: request orchestration with per-endpoint in-flight dedup, JWT bearer
// session persistence across a Redis and a file store, and typed operations
// for the riders, drivers, cranes, admins, settings, wallet, and dashboard
// resources.
//
// The package is designed for concurrent callers: Client methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// heavyride is the public surface. It exposes [Client], [Builder], [Config],
// and value types (MetricsSnapshot, AuditEvent, etc.). Request dispatch lives
// in the transport package, session state in the session package, and audit
// buffering under internal/.
//
// # What this package must NOT do
//
//   - Expose Redis clients, store internals, or wire encodings in its public API.
//   - Perform I/O outside of Client methods; construction via Builder is
//     allocation-only until Build, which performs the single synchronous
//     session restore.
//   - Import any sub-package that re-imports heavyride (no import cycles).
//
// # Request contract
//
// At most one request per method+path key is in flight at a time: dispatching
// a duplicate cancels the earlier call, which settles as a cancellation, never
// as a failure. Every 401 response tears down persisted session state exactly
// once, centrally.
package heavyride
