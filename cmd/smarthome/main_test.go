package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/database"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// TestRun_InvalidConfig verifies run fails with an unparseable config file.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("SMARTHOME_CONFIG", writeConfig(t, "invalid: [yaml: content"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("SMARTHOME_CONFIG", writeConfig(t, `
database:
  path: ""
logging:
  level: error
`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("run() error = %v, want database.path validation failure", err)
	}
}

// TestRun_ServesUntilCancelled starts the full service on a free port,
// registers a device, and shuts down on cancellation.
func TestRun_ServesUntilCancelled(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "smart_home.db")
	port := freePort(t)
	t.Setenv("SMARTHOME_CONFIG", writeConfig(t, fmt.Sprintf(`
database:
  path: %q
api:
  host: "127.0.0.1"
  port: %d
logging:
  level: error
`, dbPath, port)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitHealthy(t, base, done)

	resp, err := http.Post(base+"/devices/", "application/json",
		strings.NewReader(`{"device_id":"lamp-1","name":"Lamp","type":"light"}`))
	if err != nil {
		t.Fatalf("POST /devices/ error = %v", err)
	}
	var created map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || created["status"] != "offline" {
		t.Errorf("POST /devices/ = %d %v", resp.StatusCode, created)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	// The device survives the restart in the SQLite file.
	db, err := database.Open(context.Background(), database.Config{Path: dbPath, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM devices WHERE device_id = 'lamp-1' AND status = 'offline'",
	).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("stored devices = %d, want 1", count)
	}
}

func waitHealthy(t *testing.T, base string, done <-chan error) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-done:
			t.Fatalf("run() exited early: %v", err)
		default:
		}
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatal("service never became healthy")
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("SMARTHOME_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("SMARTHOME_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestHealthCheck_OptionalClients verifies disabled integrations are skipped.
func TestHealthCheck_OptionalClients(t *testing.T) {
	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "health.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}

	if err := healthCheck(context.Background(), db, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}

	db.Close()
	err = healthCheck(context.Background(), db, nil, nil)
	if err == nil {
		t.Fatal("healthCheck() on closed database should fail")
	}
	if !strings.HasPrefix(err.Error(), "database:") {
		t.Errorf("healthCheck() error = %v, want database prefix", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("healthCheck() error should wrap the cause")
	}
}
