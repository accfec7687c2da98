package heavyride

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/teamqeematech/heavyride-go/session"
)

func testStores(t *testing.T) (session.Store, session.Store) {
	t.Helper()
	dir := t.TempDir()
	return session.NewFileStore(filepath.Join(dir, "primary.json")),
		session.NewFileStore(filepath.Join(dir, "fallback.json"))
}

func newTestClient(t *testing.T, handler http.Handler, stores ...session.Store) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if len(stores) == 0 {
		primary, fallback := testStores(t)
		stores = []session.Store{primary, fallback}
	}

	cfg := defaultConfig()
	cfg.HTTP.BaseURL = server.URL + "/api/"

	client, err := New().
		WithConfig(cfg).
		WithStores(stores...).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

const loginResponse = `{
	"data": {
		"token": "abc.def.ghi",
		"user": {"id": 7, "name": "Dispatch Admin", "role": "Admin"}
	}
}`

func authHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginResponse))
	})
	return mux
}

func TestLoginCommitsSession(t *testing.T) {
	client := newTestClient(t, authHandler(t))

	payload, err := client.Login(context.Background(), "admin@heavyride.test", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, ok := payload["data"]; !ok {
		t.Fatal("login must return the raw payload")
	}

	if got := client.Token(); got != "abc.def.ghi" {
		t.Fatalf("token = %q", got)
	}
	if got := client.Role(); got != "admin" {
		t.Fatalf("role = %q, want admin (lowercased)", got)
	}
	if !client.IsAdmin() {
		t.Fatal("IsAdmin must hold after admin login")
	}
	if client.State() != StateAuthenticated {
		t.Fatalf("state = %v", client.State())
	}
}

func TestLoginFailureRecordsLastError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
	})
	client := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "a@b.com", "wrong")
	if err == nil {
		t.Fatal("login must fail")
	}
	if client.State() != StateUnauthenticated {
		t.Fatalf("state = %v", client.State())
	}
	if client.LastError() != "invalid credentials" {
		t.Fatalf("last error = %q", client.LastError())
	}
}

func TestLoginRejectsEnvelopeWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	client := newTestClient(t, mux)

	_, err := client.Login(context.Background(), "a@b.com", "secret")
	if !errors.Is(err, ErrInvalidAuthResponse) {
		t.Fatalf("err = %v, want ErrInvalidAuthResponse", err)
	}
	if client.IsAuthenticated() {
		t.Fatal("no session may be committed from a tokenless response")
	}
}

func TestLoginAcceptsAlternateTokenShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"tok.alt.shape","user":{"role":"driver"}}`))
	})
	client := newTestClient(t, mux)

	if _, err := client.Login(context.Background(), "d@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if got := client.Token(); got != "tok.alt.shape" {
		t.Fatalf("token = %q", got)
	}
	if !client.IsDriver() {
		t.Fatal("IsDriver must hold")
	}
}

func TestUnauthorizedResponseTearsSessionDown(t *testing.T) {
	primary, fallback := testStores(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginResponse))
	})
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	})
	client := newTestClient(t, mux, primary, fallback)

	if _, err := client.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	_, err := client.FetchProfile(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want 401", err)
	}
	if client.IsAuthenticated() {
		t.Fatal("session must report unauthenticated after a 401")
	}

	ctx := context.Background()
	for _, store := range []session.Store{primary, fallback} {
		for _, key := range []string{session.KeyUser, session.KeyToken} {
			if _, err := store.Load(ctx, key); !errors.Is(err, session.ErrEntryNotFound) {
				t.Fatalf("store entry %q survived the teardown: %v", key, err)
			}
		}
	}
}

func TestSessionSurvivesClientRestart(t *testing.T) {
	primary, fallback := testStores(t)
	client := newTestClient(t, authHandler(t), primary, fallback)

	if _, err := client.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	cfg := defaultConfig()
	cfg.HTTP.BaseURL = "http://localhost:1/api/"

	restarted, err := New().
		WithConfig(cfg).
		WithStores(primary, fallback).
		Build(context.Background())
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	defer restarted.Close()

	if !restarted.IsAuthenticated() {
		t.Fatal("restored client must be authenticated")
	}
	if restarted.Role() != "admin" {
		t.Fatalf("restored role = %q", restarted.Role())
	}
}

func TestBuildHydratesTokenOnlySession(t *testing.T) {
	primary, fallback := testStores(t)
	ctx := context.Background()
	if err := primary.Save(ctx, session.KeyToken, "abc.def.ghi", time.Hour); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var sawBearer string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		sawBearer = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":{"id":7,"role":"rider"}}`))
	})
	client := newTestClient(t, mux, primary, fallback)

	if client.User() == nil {
		t.Fatal("hydration must populate the user record")
	}
	if !client.IsRider() {
		t.Fatalf("role = %q, want rider", client.Role())
	}
	if sawBearer != "Bearer abc.def.ghi" {
		t.Fatalf("hydration request carried %q", sawBearer)
	}
	if client.State() != StateAuthenticated {
		t.Fatalf("state = %v", client.State())
	}
}

func TestRiderRoleAcceptsUserLabel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"t.o.k","user":{"user_type":"User"}}`))
	})
	client := newTestClient(t, mux)

	if _, err := client.Login(context.Background(), "r@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !client.IsRider() {
		t.Fatalf(`role %q must classify as rider`, client.Role())
	}
}

func TestLogoutClearsSessionEvenWhenServerFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginResponse))
	})
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, mux)

	if _, err := client.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := client.Logout(context.Background()); err != nil {
		t.Fatalf("logout must not surface the server fault: %v", err)
	}
	if client.IsAuthenticated() {
		t.Fatal("logout must clear the session locally")
	}
}

func TestDashboardStatsFallsBackToListEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard-stats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"not found"}`))
	})
	lists := map[string]int{"all-riders": 3, "all-drivers": 2, "all-cranes": 5, "all-admins": 1}
	for path, count := range lists {
		items := "["
		for i := 0; i < count; i++ {
			if i > 0 {
				items += ","
			}
			items += "{}"
		}
		items += "]"
		body := `{"data":` + items + `}`
		mux.HandleFunc("GET /api/"+path, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})
	}
	client := newTestClient(t, mux)

	stats, err := client.FetchDashboardStats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Riders != 3 || stats.Drivers != 2 || stats.Cranes != 5 || stats.Admins != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestListUnwrapsPaginatedEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/all-riders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q, want 2", got)
		}
		_, _ = w.Write([]byte(`{"data":{"data":[{"id":1},{"id":2}],"total":10}}`))
	})
	client := newTestClient(t, mux)

	items, err := client.ListRiders(context.Background(), ListQuery{Page: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
}

func TestMetricsCountAuthOutcomes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(loginResponse))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	primary, fallback := testStores(t)
	cfg := defaultConfig()
	cfg.HTTP.BaseURL = server.URL + "/api/"
	cfg.Metrics.Enabled = true

	client, err := New().
		WithConfig(cfg).
		WithStores(primary, fallback).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	snapshot := client.MetricsSnapshot()
	if snapshot.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success counter = %d", snapshot.Counters[MetricLoginSuccess])
	}
	if snapshot.Counters[MetricRequestCompleted] != 1 {
		t.Fatalf("request completed counter = %d", snapshot.Counters[MetricRequestCompleted])
	}
}

func TestBuilderIsSingleUse(t *testing.T) {
	primary, fallback := testStores(t)
	cfg := defaultConfig()
	cfg.HTTP.BaseURL = "http://localhost:1/api/"

	builder := New().WithConfig(cfg).WithStores(primary, fallback)
	client, err := builder.Build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer client.Close()

	if _, err := builder.Build(context.Background()); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("second build err = %v, want ErrBuilderUsed", err)
	}
}

func TestBuilderHonorsConfigSessionFilePath(t *testing.T) {
	mr := miniredis.RunT(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	server := httptest.NewServer(authHandler(t))
	t.Cleanup(server.Close)

	cfg := defaultConfig()
	cfg.HTTP.BaseURL = server.URL + "/api/"
	cfg.Session.FilePath = sessionFile

	client, err := New().
		WithConfig(cfg).
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build with Config.Session.FilePath failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Login(context.Background(), "a@b.com", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// The durable mirror must land at the configured path.
	if _, err := os.Stat(sessionFile); err != nil {
		t.Fatalf("session mirror missing at configured path: %v", err)
	}
	mirror := session.NewFileStore(sessionFile)
	if token, err := mirror.Load(context.Background(), session.KeyToken); err != nil || token != "abc.def.ghi" {
		t.Fatalf("mirror token = %q, %v", token, err)
	}
}

func TestBuilderRequiresStoresOrRedis(t *testing.T) {
	cfg := defaultConfig()
	cfg.HTTP.BaseURL = "http://localhost:1/api/"

	if _, err := New().WithConfig(cfg).Build(context.Background()); err == nil {
		t.Fatal("build without stores must fail")
	}
}
