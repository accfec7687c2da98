package transport

import (
	"context"
	"sync"
)

// inflightEntry is the cancellation handle tracked for one outstanding
// request.
type inflightEntry struct {
	cancel context.CancelCauseFunc
}

// registry is the process-wide map from request key (method + "_" + path) to
// the most recent outstanding request with that key. At most one entry per
// key is tracked; registering under an occupied key first cancels the
// previous holder with [ErrRequestSuperseded].
type registry struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
}

func newRegistry() *registry {
	return &registry{entries: make(map[string]*inflightEntry)}
}

func (r *registry) register(key string, cancel context.CancelCauseFunc) *inflightEntry {
	entry := &inflightEntry{cancel: cancel}

	r.mu.Lock()
	previous := r.entries[key]
	r.entries[key] = entry
	r.mu.Unlock()

	// Cancel outside the lock; the superseded request observes a
	// cancellation signal, not a network error.
	if previous != nil {
		previous.cancel(ErrRequestSuperseded)
	}
	return entry
}

// release removes the entry for key, but only when it is still the given
// handle. A superseding request has already replaced the entry; deleting
// unconditionally here would leak the newer registration.
func (r *registry) release(key string, entry *inflightEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries[key] == entry {
		delete(r.entries, key)
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
