package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the fixed per-request dispatch ceiling.
const DefaultTimeout = 30 * time.Second

// EventKind classifies transport notifications delivered through OnEvent.
type EventKind uint8

const (
	// EventDispatched fires when a request goes on the wire.
	EventDispatched EventKind = iota
	// EventCompleted fires on 2xx/3xx settlement.
	EventCompleted
	// EventCanceled fires when a request settles as superseded or aborted.
	EventCanceled
	// EventTimedOut fires when the dispatch ceiling elapses.
	EventTimedOut
	// EventUnauthorized fires on a 401 response, after session storage has
	// been cleared through OnUnauthorized.
	EventUnauthorized
	// EventFailed fires on transport faults and non-401 server rejections.
	EventFailed
)

// Event is a notification about one request's lifecycle. The root package
// subscribes to feed metrics and audit.
type Event struct {
	Kind      EventKind
	Key       string
	RequestID string
	Status    int
	Duration  time.Duration
	Err       error
}

// Config carries construction options for [Transport].
type Config struct {
	// BaseURL is the backend origin, including any fixed path prefix.
	BaseURL string
	// Locale is attached as Accept-Language on every request unless the
	// call context carries an override via [WithLocale]. Empty falls back
	// to "en".
	Locale string
	// Timeout is the fixed dispatch ceiling. Zero selects [DefaultTimeout].
	Timeout time.Duration
	// TokenSource supplies the current bearer credential, or "".
	TokenSource func() string
	// OnUnauthorized is invoked on every 401 response before the error is
	// surfaced. The session manager subscribes to clear persisted state.
	OnUnauthorized func(context.Context)
	// OnEvent, when non-nil, observes request lifecycle notifications.
	OnEvent func(Event)
	// HTTPClient overrides the underlying client. Its own Timeout is left
	// untouched; the transport enforces its ceiling through the context.
	HTTPClient *http.Client
	// Limiter, when non-nil, throttles dispatch client-side.
	Limiter *rate.Limiter
	// Logger receives debug records. The zero logger is usable and silent.
	Logger zerolog.Logger
}

// Transport is the request orchestrator. A single instance is shared by all
// resource operations of one client; it owns the in-flight registry and is
// safe for concurrent use.
type Transport struct {
	base           *url.URL
	locale         string
	timeout        time.Duration
	tokenSource    func() string
	onUnauthorized func(context.Context)
	onEvent        func(Event)
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         zerolog.Logger
	registry       *registry
	newID          func() string
}

// New creates a [Transport] from cfg. BaseURL is required and must parse.
func New(cfg Config) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base URL required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.New("transport: base URL must be absolute")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Transport{
		base:           base,
		locale:         cfg.Locale,
		timeout:        timeout,
		tokenSource:    cfg.TokenSource,
		onUnauthorized: cfg.OnUnauthorized,
		onEvent:        cfg.OnEvent,
		httpClient:     httpClient,
		limiter:        cfg.Limiter,
		logger:         cfg.Logger,
		registry:       newRegistry(),
		newID:          func() string { return uuid.NewString() },
	}, nil
}

type localeContextKey struct{}

// WithLocale attaches a per-call UI locale override to ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeContextKey{}, locale)
}

func (t *Transport) resolveLocale(ctx context.Context) string {
	if ctx != nil {
		if locale, _ := ctx.Value(localeContextKey{}).(string); locale != "" {
			return locale
		}
	}
	if t.locale != "" {
		return t.locale
	}
	return "en"
}

// InFlight returns the number of tracked outstanding requests.
func (t *Transport) InFlight() int {
	return t.registry.len()
}

// Do dispatches one request. Superseded, timed-out, and rejected calls all
// surface as [*APIError]; the in-flight registry entry is released on every
// settlement path.
func (t *Transport) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" || req.Path == "" {
		return nil, errors.New("transport: method and path required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := req.Method + "_" + req.Path
	requestID := t.newID()

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	entry := t.registry.register(key, cancel)
	defer t.registry.release(key, entry)
	defer cancel(nil)

	dispatchCtx, cancelTimeout := context.WithTimeoutCause(reqCtx, t.timeout, ErrRequestTimeout)
	defer cancelTimeout()

	start := time.Now()

	if t.limiter != nil {
		if err := t.limiter.Wait(dispatchCtx); err != nil {
			return nil, t.settleError(dispatchCtx, key, requestID, err, start)
		}
	}

	httpReq, err := http.NewRequestWithContext(dispatchCtx, req.Method, t.resolveURL(req.Path, req.Query), bodyReader(body))
	if err != nil {
		return nil, err
	}

	t.applyHeaders(dispatchCtx, httpReq, req.Header, contentType, requestID)

	t.emit(Event{Kind: EventDispatched, Key: key, RequestID: requestID})
	t.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("request_id", requestID).
		Msg("dispatching request")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, t.settleError(dispatchCtx, key, requestID, err, start)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.settleError(dispatchCtx, key, requestID, err, start)
	}

	// A superseding call may have canceled this request after the response
	// bytes arrived. The newest registration owns the key; a stale response
	// never settles as success.
	if cause := context.Cause(dispatchCtx); cause != nil {
		return nil, t.settleError(dispatchCtx, key, requestID, cause, start)
	}

	duration := time.Since(start)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: serverMessage(data)}

		if resp.StatusCode == http.StatusUnauthorized {
			// Centralized teardown: persisted session state is dropped here
			// so no call site has to remember to. In-memory state is the
			// session manager's to reconcile.
			if t.onUnauthorized != nil {
				t.onUnauthorized(context.WithoutCancel(ctx))
			}
			t.emit(Event{Kind: EventUnauthorized, Key: key, RequestID: requestID, Status: resp.StatusCode, Duration: duration, Err: apiErr})
			t.logger.Warn().Str("path", req.Path).Msg("unauthorized response, session storage cleared")
			return nil, apiErr
		}

		t.emit(Event{Kind: EventFailed, Key: key, RequestID: requestID, Status: resp.StatusCode, Duration: duration, Err: apiErr})
		return nil, apiErr
	}

	t.emit(Event{Kind: EventCompleted, Key: key, RequestID: requestID, Status: resp.StatusCode, Duration: duration})
	t.logger.Debug().
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("request settled")

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// applyHeaders sets the standard headers, merges caller extras, and attaches
// the bearer credential last so explicit caller overrides are never
// clobbered.
func (t *Transport) applyHeaders(ctx context.Context, httpReq *http.Request, extra http.Header, contentType, requestID string) {
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept-Language", t.resolveLocale(ctx))
	httpReq.Header.Set("X-Request-ID", requestID)

	for key, values := range extra {
		httpReq.Header.Del(key)
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if t.tokenSource != nil && httpReq.Header.Get("Authorization") == "" {
		if token := t.tokenSource(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func (t *Transport) resolveURL(path string, query url.Values) string {
	resolved := *t.base
	resolved.Path = strings.TrimSuffix(resolved.Path, "/") + "/" + strings.TrimPrefix(path, "/")

	if len(query) > 0 {
		merged := resolved.Query()
		for key, values := range query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		resolved.RawQuery = merged.Encode()
	}

	return resolved.String()
}

// settleError classifies a dispatch failure. The cancellation cause wins
// over the raw error so a superseded request reports cancellation even when
// the HTTP client wraps the context error.
func (t *Transport) settleError(dispatchCtx context.Context, key, requestID string, err error, start time.Time) *APIError {
	duration := time.Since(start)
	cause := context.Cause(dispatchCtx)

	var apiErr *APIError
	switch {
	case errors.Is(cause, ErrRequestSuperseded):
		apiErr = &APIError{Canceled: true, Err: ErrRequestSuperseded}
		t.emit(Event{Kind: EventCanceled, Key: key, RequestID: requestID, Duration: duration, Err: apiErr})
	case errors.Is(cause, ErrRequestTimeout):
		apiErr = &APIError{TimedOut: true, Err: ErrRequestTimeout}
		t.emit(Event{Kind: EventTimedOut, Key: key, RequestID: requestID, Duration: duration, Err: apiErr})
	case errors.Is(cause, context.Canceled) || errors.Is(err, context.Canceled):
		apiErr = &APIError{Canceled: true, Err: context.Canceled}
		t.emit(Event{Kind: EventCanceled, Key: key, RequestID: requestID, Duration: duration, Err: apiErr})
	default:
		apiErr = &APIError{Err: err}
		t.emit(Event{Kind: EventFailed, Key: key, RequestID: requestID, Duration: duration, Err: apiErr})
	}

	return apiErr
}

// serverMessage extracts the conventional {"message": ...} field from an
// error response body.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func (t *Transport) emit(event Event) {
	if t.onEvent != nil {
		t.onEvent(event)
	}
}
