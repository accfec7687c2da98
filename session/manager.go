package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrIncompleteSession is returned by [Manager.Commit] when either the user
// record or the normalized token resolves to absent.
var ErrIncompleteSession = errors.New("session requires both user and token")

// DefaultTTL is the primary-store lifetime of a committed session.
const DefaultTTL = 7 * 24 * time.Hour

// State is the lifecycle position of the session manager.
type State uint8

const (
	// StateUnauthenticated means no valid session is held.
	StateUnauthenticated State = iota
	// StateAuthenticating means a login or registration call is in flight.
	StateAuthenticating
	// StateAuthenticated means a valid user+token pair is held.
	StateAuthenticated
	// StateProfileHydrating means the session is authenticated and a profile
	// fetch is in flight.
	StateProfileHydrating
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateProfileHydrating:
		return "profile_hydrating"
	default:
		return "unauthenticated"
	}
}

// EventKind classifies manager notifications delivered through OnEvent.
type EventKind uint8

const (
	// EventRestored fires when Load reconstructs a full session from storage.
	EventRestored EventKind = iota
	// EventSelfHeal fires when a corrupt stored entry is purged during Load.
	EventSelfHeal
	// EventCommitted fires when a new session is written to both stores.
	EventCommitted
	// EventCleared fires when the session is torn down locally.
	EventCleared
	// EventStorageCleared fires when only persisted state is dropped, as on a
	// 401 response observed by the transport.
	EventStorageCleared
)

// Event is a notification about a session lifecycle transition. The root
// package subscribes to feed metrics and audit.
type Event struct {
	Kind EventKind
	Key  string
	Err  error
}

// Config carries construction options for [Manager].
type Config struct {
	// TTL is the primary-store entry lifetime. Zero selects [DefaultTTL].
	TTL time.Duration
	// Logger receives debug/warn records. The zero logger is usable and silent.
	Logger zerolog.Logger
	// OnEvent, when non-nil, observes lifecycle transitions.
	OnEvent func(Event)
}

// Manager owns identity/session transitions and the redundant persistence of
// the session across the primary (expiring) and fallback (durable) stores.
//
// Manager instances are intended to be constructed once per client and are
// safe for concurrent use.
type Manager struct {
	primary  Store
	fallback Store
	ttl      time.Duration
	logger   zerolog.Logger
	onEvent  func(Event)

	mu        sync.Mutex
	state     State
	sess      Session
	lastError string
	hydrated  bool
}

// NewManager creates a [Manager] over the two persistence backends. The
// fallback store may be nil, in which case only the primary is used. Call
// [Manager.Load] before the first read.
func NewManager(primary, fallback Store, cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		primary:  primary,
		fallback: fallback,
		ttl:      ttl,
		logger:   cfg.Logger,
		onEvent:  cfg.OnEvent,
		state:    StateUnauthenticated,
	}
}

// Load synchronously reconstructs the session from persistent storage. The
// primary store is consulted first; a present-but-unparseable entry is purged
// from the offending store (never silently kept corrupt) before the fallback
// is consulted. Load never fails on corrupt data, only on context errors.
func (m *Manager) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	user := m.loadUser(ctx)
	token := m.loadToken(ctx)

	m.mu.Lock()
	m.sess = Session{User: user, Token: token, Role: ResolveRole(user)}
	if token != "" && user != nil {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
	restored := m.state == StateAuthenticated
	m.mu.Unlock()

	if restored {
		m.emit(Event{Kind: EventRestored})
		m.logger.Debug().Str("role", ResolveRole(user)).Msg("session restored from storage")
	}
	return nil
}

func (m *Manager) loadUser(ctx context.Context) map[string]any {
	for _, store := range m.stores() {
		raw, err := store.Load(ctx, KeyUser)
		if err != nil {
			if !errors.Is(err, ErrEntryNotFound) {
				m.logger.Warn().Err(err).Msg("session store read failed for user entry")
			}
			continue
		}
		user, ok := ParseStoredUser(raw)
		if !ok {
			m.selfHeal(ctx, store, KeyUser)
			continue
		}
		return user
	}
	return nil
}

func (m *Manager) loadToken(ctx context.Context) string {
	for _, store := range m.stores() {
		raw, err := store.Load(ctx, KeyToken)
		if err != nil {
			if !errors.Is(err, ErrEntryNotFound) {
				m.logger.Warn().Err(err).Msg("session store read failed for token entry")
			}
			continue
		}
		token, ok := NormalizeToken(raw)
		if !ok {
			m.selfHeal(ctx, store, KeyToken)
			continue
		}
		return token
	}
	return ""
}

func (m *Manager) stores() []Store {
	if m.fallback == nil {
		return []Store{m.primary}
	}
	return []Store{m.primary, m.fallback}
}

func (m *Manager) selfHeal(ctx context.Context, store Store, key string) {
	if err := store.Clear(ctx, key); err != nil {
		m.logger.Warn().Err(err).Str("key", key).Msg("failed to purge corrupt session entry")
		return
	}
	m.emit(Event{Kind: EventSelfHeal, Key: key})
	m.logger.Warn().Str("key", key).Msg("purged corrupt session entry")
}

// Commit normalizes the token, persists the pair to both stores, and updates
// the in-memory session and derived role. Returns [ErrIncompleteSession] when
// either half is absent after normalization.
func (m *Manager) Commit(ctx context.Context, user map[string]any, token any) error {
	normalized, ok := NormalizeToken(token)
	if !ok || user == nil {
		return ErrIncompleteSession
	}

	if err := m.persist(ctx, user, normalized); err != nil {
		return err
	}

	m.mu.Lock()
	m.sess = Session{User: user, Token: normalized, Role: ResolveRole(user)}
	m.state = StateAuthenticated
	m.lastError = ""
	m.mu.Unlock()

	m.emit(Event{Kind: EventCommitted})
	return nil
}

// UpdateUser replaces the profile record while retaining the current token.
// Used after a profile fetch. Fails with [ErrIncompleteSession] when no token
// is held.
func (m *Manager) UpdateUser(ctx context.Context, user map[string]any) error {
	m.mu.Lock()
	token := m.sess.Token
	m.mu.Unlock()

	if token == "" || user == nil {
		return ErrIncompleteSession
	}

	if err := m.persist(ctx, user, token); err != nil {
		return err
	}

	m.mu.Lock()
	m.sess = Session{User: user, Token: token, Role: ResolveRole(user)}
	m.state = StateAuthenticated
	m.mu.Unlock()

	return nil
}

func (m *Manager) persist(ctx context.Context, user map[string]any, token string) error {
	encoded, err := EncodeUser(user)
	if err != nil {
		return err
	}

	for _, store := range m.stores() {
		ttl := m.ttl
		if store != m.primary {
			ttl = 0 // durable mirror, no expiry
		}
		if err := store.Save(ctx, KeyUser, encoded, ttl); err != nil {
			return err
		}
		if err := store.Save(ctx, KeyToken, token, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Clear tears the session down: both stores are wiped and in-memory state is
// reset to unauthenticated. Store failures are logged, not returned; local
// teardown always completes.
func (m *Manager) Clear(ctx context.Context) {
	m.clearStores(ctx)

	m.mu.Lock()
	m.sess = Session{}
	m.state = StateUnauthenticated
	m.hydrated = false
	m.mu.Unlock()

	m.emit(Event{Kind: EventCleared})
}

// ClearStorage drops only the persisted session from both stores. In-memory
// state is left for the caller to observe and reset; use [Manager.Clear] for
// a full teardown.
func (m *Manager) ClearStorage(ctx context.Context) {
	m.clearStores(ctx)
	m.emit(Event{Kind: EventStorageCleared})
}

func (m *Manager) clearStores(ctx context.Context) {
	for _, store := range m.stores() {
		if err := store.Clear(ctx, KeyUser, KeyToken); err != nil {
			m.logger.Warn().Err(err).Msg("session store clear failed")
		}
	}
}

// BeginAuthenticating marks a login or registration call in flight and resets
// the recorded error message.
func (m *Manager) BeginAuthenticating() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthenticating
	m.lastError = ""
}

// AuthFailed records a human-readable failure message and returns the machine
// to the unauthenticated state.
func (m *Manager) AuthFailed(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError = message
	m.state = StateUnauthenticated
}

// BeginHydration reports whether an automatic profile fetch should run: a
// token is held, no user is loaded, and no hydration attempt has been made.
// The attempt is recorded eagerly; a failed hydration is not retried.
func (m *Manager) BeginHydration() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hydrated || m.sess.Token == "" || m.sess.User != nil {
		return false
	}
	m.hydrated = true
	m.state = StateProfileHydrating
	return true
}

// HydrationFailed returns the machine to the state implied by what is held:
// authenticated when a user record survives, unauthenticated otherwise.
func (m *Manager) HydrationFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.User != nil && m.sess.Token != "" {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}
}

// Token returns the current bearer credential, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Token
}

// User returns the current profile record, or nil.
func (m *Manager) User() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.User
}

// Role returns the derived role classification, or "".
func (m *Manager) Role() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Role
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent login/registration failure message.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastError
}

// IsAuthenticated reports whether a bearer token is held.
func (m *Manager) IsAuthenticated() bool {
	return m.Token() != ""
}

// HasRole reports whether the derived role equals any of the given values.
func (m *Manager) HasRole(roles ...string) bool {
	current := m.Role()
	if current == "" {
		return false
	}
	for _, role := range roles {
		if current == role {
			return true
		}
	}
	return false
}

func (m *Manager) emit(event Event) {
	if m.onEvent != nil {
		m.onEvent(event)
	}
}
