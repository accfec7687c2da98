package heavyride

import (
	"io"
	"net/url"
	"strconv"

	internalaudit "github.com/teamqeematech/heavyride-go/internal/audit"
	"github.com/teamqeematech/heavyride-go/session"
)

// SessionState is the lifecycle phase of the managed session.
//
//	Docs: docs/session.md
type SessionState = session.State

const (
	// StateUnauthenticated is the state with no committed session.
	StateUnauthenticated = session.StateUnauthenticated
	// StateAuthenticating is the state during a login or registration exchange.
	StateAuthenticating = session.StateAuthenticating
	// StateAuthenticated is the state with both token and user present.
	StateAuthenticated = session.StateAuthenticated
	// StateProfileHydrating is the state during the one-shot profile refresh
	// that follows restoring a token without a user object.
	StateProfileHydrating = session.StateProfileHydrating
)

// SessionInfo is a read-only snapshot of the committed session.
type SessionInfo = session.Session

// AuditEvent is a structured audit record emitted by the client.
//
//	Docs: docs/audit.md
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the client's audit dispatcher.
//
//	Docs: docs/audit.md
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
//
//	Docs: docs/audit.md
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
//
//	Docs: docs/audit.md
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
//
//	Docs: docs/audit.md
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
//
//	Docs: docs/audit.md
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// ListQuery carries the pagination and search parameters shared by the list
// endpoints. Zero values are omitted from the request.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
}

func (q ListQuery) values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		values.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	return values
}
