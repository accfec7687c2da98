// Package session owns the authenticated-identity lifecycle for the Heavy Ride
// client: the in-memory session record, bearer-token normalization, redundant
// persistence across an expiring primary store and a durable fallback store,
// and the state machine driven by login, registration, profile hydration, and
// teardown.
//
// The package never performs network I/O. The root package wires a [Manager]
// to the transport layer: the transport reads the current token through
// [Manager.Token] and tears the whole session down on 401 responses through
// [Manager.Clear]. [Manager.ClearStorage] drops only the persisted entries
// for callers that manage in-memory state themselves.
package session
