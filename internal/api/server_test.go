package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/device"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/logging"
	"github.com/nerrad567/smarthome-core/internal/infrastructure/mqtt"
	_ "github.com/nerrad567/smarthome-core/migrations"
)

// testServer creates a Server backed by a migrated SQLite file in a temp dir.
func testServer(t *testing.T, opts ...func(*Deps)) *Server {
	t.Helper()

	deps := Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
		},
		Logger:  logging.Discard(),
		Store:   device.NewStore(setupTestDB(t)),
		Version: "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

// setupTestDB opens a database with the embedded migrations applied.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "smart_home.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// serve runs one request through the full middleware stack.
func serve(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return v
}

// fakeEvents records published events.
type fakeEvents struct {
	mu        sync.Mutex
	topics    []string
	payloads  [][]byte
	publishFn func(topic string) error
}

func (f *fakeEvents) PublishEvent(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	if f.publishFn != nil {
		return f.publishFn(topic)
	}
	return nil
}

func (f *fakeEvents) Topics() mqtt.Topics {
	return mqtt.NewTopics("test")
}

// fakeTelemetry records measurements.
type fakeTelemetry struct {
	mu         sync.Mutex
	routes     []string
	statuses   []int
	registered []string
	echoSizes  []int
}

func (f *fakeTelemetry) WriteRequest(_, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, route)
	f.statuses = append(f.statuses, status)
}

func (f *fakeTelemetry) WriteDeviceRegistered(deviceID, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, deviceID)
}

func (f *fakeTelemetry) WriteEchoMessage(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echoSizes = append(f.echoSizes, size)
}

func (f *fakeTelemetry) echoCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.echoSizes)
}

// ─── Construction & Lifecycle ──────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{Store: &device.Store{}}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without store should fail")
	}
}

func TestServer_StartAndClose(t *testing.T) {
	srv := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("Addr() empty after Start")
	}

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", resp.StatusCode)
	}

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	first := testServer(t)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { first.Close() }) //nolint:errcheck // Test cleanup

	_, port, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort(%q) error = %v", first.Addr(), err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("Atoi(%q) error = %v", port, err)
	}
	second := testServer(t, func(d *Deps) {
		d.Config.Port = portNum
	})
	if err := second.Start(context.Background()); err == nil {
		second.Close() //nolint:errcheck // Test cleanup
		t.Fatal("Start() on a bound port should fail")
	}
}

func TestServer_CloseBeforeStart(t *testing.T) {
	srv := testServer(t)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start error = %v", err)
	}
}

// ─── System Endpoints ──────────────────────────────────────────────

func TestRoot(t *testing.T) {
	srv := testServer(t)
	w := serve(t, srv, http.MethodGet, "/", "")

	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeBody[map[string]string](t, w)
	if resp["message"] != "欢迎使用智能家居控制系统" {
		t.Errorf("message = %q", resp["message"])
	}
	if len(resp) != 1 {
		t.Errorf("response has extra keys: %v", resp)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	w := serve(t, srv, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeBody[map[string]string](t, w)
	if len(resp) != 1 || resp["status"] != "healthy" {
		t.Errorf("GET /health = %v, want {status: healthy}", resp)
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv := testServer(t)
	w := serve(t, srv, http.MethodGet, "/health", "")

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv := testServer(t)
	w := serve(t, srv, http.MethodGet, "/health", "")

	if id := w.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", id)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-id-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-id-123" {
		t.Errorf("X-Request-ID = %q, want client-id-123", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/devices/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("Access-Control-Allow-Origin not set")
	}
}

func TestCORS_RestrictedOrigins(t *testing.T) {
	srv := testServer(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"http://panel.local"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q for disallowed origin", got)
	}
}

func TestNotFoundRoute(t *testing.T) {
	srv := testServer(t)
	w := serve(t, srv, http.MethodGet, "/nonexistent", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	resp := decodeBody[Error](t, w)
	if resp.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeNotFound)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t)
	w := serve(t, srv, http.MethodDelete, "/devices/lamp-1", "")

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestRecovery(t *testing.T) {
	srv := testServer(t)
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestBodySizeLimit(t *testing.T) {
	srv := testServer(t)
	big := `{"device_id":"x","name":"` + strings.Repeat("a", maxRequestBodySize) + `","type":"light"}`
	w := serve(t, srv, http.MethodPost, "/devices/", big)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTelemetry_RequestRoutePattern(t *testing.T) {
	tel := &fakeTelemetry{}
	srv := testServer(t, func(d *Deps) { d.Telemetry = tel })

	serve(t, srv, http.MethodGet, "/devices/lamp-1", "")
	serve(t, srv, http.MethodGet, "/nope", "")

	tel.mu.Lock()
	defer tel.mu.Unlock()
	want := []string{"/devices/{device_id}", routeUnmatched}
	if len(tel.routes) != len(want) {
		t.Fatalf("routes = %v, want %v", tel.routes, want)
	}
	for i := range want {
		if tel.routes[i] != want[i] {
			t.Errorf("routes[%d] = %q, want %q", i, tel.routes[i], want[i])
		}
	}
	if tel.statuses[0] != http.StatusNotFound {
		t.Errorf("statuses[0] = %d, want 404", tel.statuses[0])
	}
}
