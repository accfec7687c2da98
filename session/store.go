package session

import (
	"context"
	"errors"
	"time"
)

// Persisted entry keys shared by every store implementation. A fresh process
// must be able to reconstruct the session from either backend using these two
// keys alone.
const (
	KeyUser  = "user"
	KeyToken = "token"
)

// ErrEntryNotFound is returned by [Store.Load] when the key holds no value.
var ErrEntryNotFound = errors.New("session entry not found")

// ErrStoreUnavailable wraps backend failures (connection loss, filesystem
// errors) so callers can distinguish a missing entry from a broken store.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Store is a key-value persistence backend for session entries.
//
// Implementations must treat Clear of an absent key as a no-op and must keep
// Save/Load/Clear safe for concurrent use.
type Store interface {
	Save(ctx context.Context, key, value string, ttl time.Duration) error
	Load(ctx context.Context, key string) (string, error)
	Clear(ctx context.Context, keys ...string) error
}
