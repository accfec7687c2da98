package heavyride

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	internalaudit "github.com/teamqeematech/heavyride-go/internal/audit"
	"github.com/teamqeematech/heavyride-go/session"
	"github.com/teamqeematech/heavyride-go/transport"
)

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger zerolog.Logger) *internalaudit.Dispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
		Logger:     logger,
	}, sink)
}

// observer fans request and session lifecycle notifications out to the
// metrics system and the audit dispatcher. Both targets tolerate nil, so the
// observer is always wired.
type observer struct {
	metrics *Metrics
	audit   *internalaudit.Dispatcher
}

// transportEvent translates one request lifecycle notification. Dispatched
// and completed requests count but leave no audit trail; cancellations,
// timeouts, and teardowns do both.
func (o *observer) transportEvent(e transport.Event) {
	switch e.Kind {
	case transport.EventDispatched:
		o.metrics.Inc(MetricRequestDispatched)
	case transport.EventCompleted:
		o.metrics.Inc(MetricRequestCompleted)
		o.metrics.Observe(MetricRequestLatency, e.Duration)
	case transport.EventCanceled:
		o.metrics.Inc(MetricRequestCanceled)
		o.emit("request_canceled", e, false)
	case transport.EventTimedOut:
		o.metrics.Inc(MetricRequestTimedOut)
		o.emit("request_timed_out", e, false)
	case transport.EventUnauthorized:
		o.metrics.Inc(MetricRequestUnauthorized)
		o.metrics.Observe(MetricRequestLatency, e.Duration)
		o.emit("unauthorized_teardown", e, false)
	case transport.EventFailed:
		o.metrics.Inc(MetricRequestFailed)
		o.metrics.Observe(MetricRequestLatency, e.Duration)
	}
}

func (o *observer) sessionEvent(e session.Event) {
	switch e.Kind {
	case session.EventRestored:
		o.metrics.Inc(MetricSessionRestored)
	case session.EventSelfHeal:
		o.metrics.Inc(MetricStorageSelfHeal)
		o.audit.Emit(context.Background(), AuditEvent{
			Timestamp: time.Now(),
			EventType: "storage_self_heal",
			Success:   true,
			Metadata:  map[string]string{"key": e.Key},
		})
	}
}

func (o *observer) emit(eventType string, e transport.Event, success bool) {
	method, endpoint, _ := strings.Cut(e.Key, "_")
	record := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		Method:    method,
		Endpoint:  endpoint,
		RequestID: e.RequestID,
		Status:    e.Status,
		Success:   success,
	}
	if e.Err != nil {
		record.Error = e.Err.Error()
	}
	o.audit.Emit(context.Background(), record)
}
