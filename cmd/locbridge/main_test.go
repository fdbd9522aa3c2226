package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
server:
    address: localhost:0
log:
    server:
        path: %q
        level: debug
    events:
        path: %q
        level: debug
db:
    path: %q
sdk:
    mock:
        fix_delay: 10ms
%s`, filepath.Join(dir, "server.log"), filepath.Join(dir, "events.log"), filepath.Join(dir, "locbridge.db"), extra)

	path := filepath.Join(dir, "locbridge.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	path := writeTestConfig(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx, path); err != nil {
		t.Fatalf("run() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "server.log"))
	if err != nil {
		t.Fatalf("server log missing: %v", err)
	}
	for _, want := range []string{"locbridge started", "Startup Checks Summary", "Starting server"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("server log missing %q", want)
		}
	}
}

func TestRun_StartupCheckFails(t *testing.T) {
	path := writeTestConfig(t, "")

	// A broken database path fails before the server starts.
	blocker := filepath.Join(filepath.Dir(path), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOCBRIDGE_DB_PATH", filepath.Join(blocker, "sub", "locbridge.db"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx, path); err == nil {
		t.Fatal("expected run() to fail")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeTestConfig(t, "events:\n    backend: kafka\n")

	if err := run(context.Background(), path); err == nil || !strings.Contains(err.Error(), "events.backend") {
		t.Fatalf("expected backend validation error, got %v", err)
	}
}
