package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestTransport(t *testing.T, handler http.Handler, cfg Config) (*Transport, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL + "/api/"
	tr, err := New(cfg)
	if err != nil {
		t.Fatalf("transport setup failed: %v", err)
	}
	return tr, server
}

func TestDoSuccess(t *testing.T) {
	var gotPath, gotAccept string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}), Config{})

	resp, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "all-riders"})
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotPath != "/api/all-riders" {
		t.Fatalf("path = %q, want /api/all-riders", gotPath)
	}
	if gotAccept != "application/json" {
		t.Fatalf("accept = %q", gotAccept)
	}

	payload, err := resp.Payload()
	if err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if _, ok := payload["data"]; !ok {
		t.Fatal("payload missing data envelope")
	}

	if tr.InFlight() != 0 {
		t.Fatalf("in-flight entries leaked: %d", tr.InFlight())
	}
}

func TestSupersededRequestsReportCancellation(t *testing.T) {
	received := make(chan struct{}, 3)
	release := make(chan struct{})
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		select {
		case <-release:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":[]}`))
		case <-r.Context().Done():
		}
	}), Config{})

	var wg sync.WaitGroup
	results := make([]error, 3)

	// Three rapid calls to the same key, each issued only after the
	// previous one is confirmed on the wire.
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "all-riders"})
			results[slot] = err
		}(i)
		select {
		case <-received:
		case <-time.After(5 * time.Second):
			t.Fatal("request never reached the server")
		}
	}

	close(release)
	wg.Wait()

	for i := 0; i < 2; i++ {
		if !IsCancellation(results[i]) {
			t.Fatalf("superseded request %d settled as %v, want cancellation", i, results[i])
		}
	}
	if results[2] != nil {
		t.Fatalf("final request failed: %v", results[2])
	}
	if tr.InFlight() != 0 {
		t.Fatalf("in-flight entries leaked: %d", tr.InFlight())
	}
}

// gatedTripper holds the first exchange open until release is closed; later
// exchanges answer immediately. It ignores request cancellation, so a
// response can be delivered to a request whose context is already canceled.
type gatedTripper struct {
	mu      sync.Mutex
	calls   int
	onWire  chan struct{}
	release chan struct{}
}

func (g *gatedTripper) RoundTrip(*http.Request) (*http.Response, error) {
	g.mu.Lock()
	g.calls++
	first := g.calls == 1
	g.mu.Unlock()

	if first {
		close(g.onWire)
		<-g.release
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(`{"data":[]}`)),
	}, nil
}

func TestSupersededResponseArrivingLateSettlesAsCancellation(t *testing.T) {
	gate := &gatedTripper{onWire: make(chan struct{}), release: make(chan struct{})}
	tr, err := New(Config{
		BaseURL:    "http://heavyride.internal/api/",
		HTTPClient: &http.Client{Transport: gate},
	})
	if err != nil {
		t.Fatalf("transport setup failed: %v", err)
	}

	var stale *Response
	done := make(chan error, 1)
	go func() {
		resp, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "all-riders"})
		stale = resp
		done <- err
	}()

	<-gate.onWire

	// The second call supersedes the first while its response is still in
	// flight; the gate then lets the first response through anyway.
	if _, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "all-riders"}); err != nil {
		t.Fatalf("superseding request failed: %v", err)
	}
	close(gate.release)

	err = <-done
	if !IsCancellation(err) {
		t.Fatalf("late response settled as %v, want cancellation", err)
	}
	if !errors.Is(err, ErrRequestSuperseded) {
		t.Fatalf("err = %v, want ErrRequestSuperseded cause", err)
	}
	if stale != nil {
		t.Fatal("stale response must not reach the caller")
	}
	if tr.InFlight() != 0 {
		t.Fatalf("in-flight entries leaked: %d", tr.InFlight())
	}
}

func TestDistinctKeysDoNotInterfere(t *testing.T) {
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}), Config{})

	ctx := context.Background()
	if _, err := tr.Do(ctx, Request{Method: http.MethodGet, Path: "all-riders"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if _, err := tr.Do(ctx, Request{Method: http.MethodGet, Path: "all-drivers"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	// Same path, different method: distinct key, no supersession.
	if _, err := tr.Do(ctx, Request{Method: http.MethodPost, Path: "all-riders"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
}

func TestTimeoutDistinctFromCancellation(t *testing.T) {
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}), Config{Timeout: 50 * time.Millisecond})

	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "user"})
	if !IsTimeout(err) {
		t.Fatalf("err = %v, want timeout", err)
	}
	if IsCancellation(err) {
		t.Fatal("timeout must not classify as cancellation")
	}
}

func TestCallerAbortReportsCancellation(t *testing.T) {
	started := make(chan struct{})
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := tr.Do(ctx, Request{Method: http.MethodGet, Path: "user"})
		done <- err
	}()

	<-started
	cancel()

	if err := <-done; !IsCancellation(err) {
		t.Fatalf("err = %v, want cancellation", err)
	}
}

func TestBearerAttachedWhenTokenPresent(t *testing.T) {
	var gotAuth string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}), Config{TokenSource: func() string { return "tok1" }})

	if _, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "user"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotAuth != "Bearer tok1" {
		t.Fatalf("authorization = %q, want Bearer tok1", gotAuth)
	}
}

func TestExplicitAuthorizationNeverClobbered(t *testing.T) {
	var gotAuth string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}), Config{TokenSource: func() string { return "tok1" }})

	header := http.Header{}
	header.Set("Authorization", "Basic override")
	if _, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "user", Header: header}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotAuth != "Basic override" {
		t.Fatalf("authorization = %q, caller override was clobbered", gotAuth)
	}
}

func TestLocaleHeader(t *testing.T) {
	var gotLocale string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLocale = r.Header.Get("Accept-Language")
		w.WriteHeader(http.StatusOK)
	})

	tr, _ := newTestTransport(t, handler, Config{})
	if _, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "user"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotLocale != "en" {
		t.Fatalf("default locale = %q, want en", gotLocale)
	}

	arabic, _ := newTestTransport(t, handler, Config{Locale: "ar"})
	if _, err := arabic.Do(context.Background(), Request{Method: http.MethodGet, Path: "user"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotLocale != "ar" {
		t.Fatalf("configured locale = %q, want ar", gotLocale)
	}

	if _, err := arabic.Do(WithLocale(context.Background(), "fr"), Request{Method: http.MethodGet, Path: "user"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotLocale != "fr" {
		t.Fatalf("context locale = %q, want fr", gotLocale)
	}
}

func TestRequestIDHeader(t *testing.T) {
	var gotID string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}), Config{})

	var dispatched Event
	tr.onEvent = func(e Event) {
		if e.Kind == EventDispatched {
			dispatched = e
		}
	}

	if _, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "user"}); err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if gotID == "" {
		t.Fatal("request id header missing")
	}
	if dispatched.RequestID != gotID {
		t.Fatalf("event request id %q != header %q", dispatched.RequestID, gotID)
	}
}

func TestUnauthorizedClearsSessionAndSurfacesError(t *testing.T) {
	tornDown := false
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}), Config{OnUnauthorized: func(context.Context) { tornDown = true }})

	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, Path: "user"})
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	if !tornDown {
		t.Fatal("OnUnauthorized was not invoked")
	}
	if Message(err, "fallback") != "token expired" {
		t.Fatalf("message = %q", Message(err, "fallback"))
	}
}

func TestServerErrorCarriesMessage(t *testing.T) {
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"email already taken"}`))
	}), Config{})

	_, err := tr.Do(context.Background(), Request{Method: http.MethodPost, Path: "register"})
	if StatusCode(err) != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", StatusCode(err))
	}
	if Message(err, "") != "email already taken" {
		t.Fatalf("message = %q", Message(err, ""))
	}
	if IsCancellation(err) || IsTimeout(err) {
		t.Fatal("server rejection misclassified")
	}
}

func TestSettingsUpdateWireFormat(t *testing.T) {
	var gotQuery, gotBody, gotContentType string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	}), Config{})

	body := Values(map[string]any{
		"minimum_fare_to_ride": float64(50),
		"profit_type":          "percentage",
		"profit_value":         float64(10),
	})
	query := url.Values{}
	query.Set("_method", "PUT")

	if _, err := tr.Do(context.Background(), Request{Method: http.MethodPost, Path: "update-settings", Body: body, Query: query}); err != nil {
		t.Fatalf("do failed: %v", err)
	}

	if gotQuery != "_method=PUT" {
		t.Fatalf("query = %q, want _method=PUT", gotQuery)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("content type = %q", gotContentType)
	}
	for _, pair := range []string{"minimum_fare_to_ride=50", "profit_type=percentage", "profit_value=10"} {
		if !strings.Contains(gotBody, pair) {
			t.Fatalf("body %q missing %q", gotBody, pair)
		}
	}
}

func TestMultipartBody(t *testing.T) {
	var gotContentType string
	var gotFields map[string][]string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			gotFields = r.MultipartForm.Value
		}
		w.WriteHeader(http.StatusOK)
	}), Config{})

	form := NewForm().
		Set("name", "Crane 7").
		Set("tags", []string{"heavy", "mobile"}).
		Set("skipped", nil)
	form.AddFile("photo", "crane.jpg", strings.NewReader("jpegbytes"))

	if _, err := tr.Do(context.Background(), Request{Method: http.MethodPost, Path: "create-crane", Body: form}); err != nil {
		t.Fatalf("do failed: %v", err)
	}

	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Fatalf("content type = %q", gotContentType)
	}
	if got := gotFields["name"]; len(got) != 1 || got[0] != "Crane 7" {
		t.Fatalf("name field = %v", got)
	}
	if got := gotFields["tags[]"]; len(got) != 2 {
		t.Fatalf("tags field = %v, want two entries", got)
	}
	if _, ok := gotFields["skipped"]; ok {
		t.Fatal("nil field must be skipped")
	}
}

func TestJSONBodyDefault(t *testing.T) {
	var gotContentType, gotBody string
	tr, _ := newTestTransport(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.WriteHeader(http.StatusOK)
	}), Config{})

	body := map[string]string{"email": "a@b.com", "password": "secret"}
	if _, err := tr.Do(context.Background(), Request{Method: http.MethodPost, Path: "login", Body: body}); err != nil {
		t.Fatalf("do failed: %v", err)
	}

	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
	if !strings.Contains(gotBody, `"email":"a@b.com"`) {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("empty base URL must be rejected")
	}
	if _, err := New(Config{BaseURL: "not-a-url"}); err == nil {
		t.Fatal("relative base URL must be rejected")
	}
}
