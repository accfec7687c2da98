package heavyride

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	internalaudit "github.com/teamqeematech/heavyride-go/internal/audit"
	"github.com/teamqeematech/heavyride-go/session"
	"github.com/teamqeematech/heavyride-go/transport"
)

// Client is the assembled HeavyRide API client. It owns one transport and one
// session manager; all resource operations share the transport's in-flight
// registry and the session's credential.
//
// Client instances are intended to be constructed through [Builder.Build] and
// are safe for concurrent use.
type Client struct {
	config    Config
	transport *transport.Transport
	session   *session.Manager
	metrics   *Metrics
	audit     *internalaudit.Dispatcher
	logger    zerolog.Logger
	closed    atomic.Bool
}

// Close drains the audit dispatcher. The Client must not be used afterwards.
func (c *Client) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.audit.Close()
	}
}

// Session returns a snapshot of the committed session.
func (c *Client) Session() SessionInfo {
	return c.session.Session()
}

// Token returns the current bearer credential, or "".
func (c *Client) Token() string {
	return c.session.Token()
}

// User returns the current profile record, or nil.
func (c *Client) User() map[string]any {
	return c.session.User()
}

// Role returns the derived role classification, or "".
func (c *Client) Role() string {
	return c.session.Role()
}

// State returns the session lifecycle state.
func (c *Client) State() SessionState {
	return c.session.State()
}

// LastError returns the most recent login or registration failure message.
func (c *Client) LastError() string {
	return c.session.LastError()
}

// IsAuthenticated reports whether a bearer token is held.
func (c *Client) IsAuthenticated() bool {
	return c.session.IsAuthenticated()
}

// IsAdmin reports whether the derived role is "admin".
func (c *Client) IsAdmin() bool {
	return c.session.HasRole("admin")
}

// IsDriver reports whether the derived role is "driver".
func (c *Client) IsDriver() bool {
	return c.session.HasRole("driver")
}

// IsRider reports whether the derived role is "rider". The backend labels
// rider accounts "user" in some responses; both classify as rider.
func (c *Client) IsRider() bool {
	return c.session.HasRole("rider", "user")
}

// InFlight returns the number of outstanding tracked requests.
func (c *Client) InFlight() int {
	return c.transport.InFlight()
}

// MetricsSnapshot returns a deep copy of the metrics counters.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Metrics returns the live metrics instance, for exporter wiring.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// AuditDropped returns the number of audit events discarded because the
// buffer was full.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

func (c *Client) do(ctx context.Context, req transport.Request) (*transport.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.transport.Do(ctx, req)
}

// list dispatches a GET and unwraps the conventional data.data / data list
// envelopes.
func (c *Client) list(ctx context.Context, path string, query ListQuery) ([]any, error) {
	resp, err := c.do(ctx, transport.Request{
		Method: "GET",
		Path:   path,
		Query:  query.values(),
	})
	if err != nil {
		return nil, err
	}
	payload, err := resp.Payload()
	if err != nil {
		return nil, err
	}
	return unwrapList(payload), nil
}

// unwrapList digs the item slice out of the response envelope. Responses
// arrive as {"data": {"data": [...]}} when paginated and {"data": [...]}
// otherwise.
func unwrapList(payload map[string]any) []any {
	data, ok := payload["data"]
	if !ok {
		return nil
	}
	if items, ok := data.([]any); ok {
		return items
	}
	if inner, ok := data.(map[string]any); ok {
		if items, ok := inner["data"].([]any); ok {
			return items
		}
	}
	return nil
}
