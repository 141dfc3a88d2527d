package reload

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hooknotify/pkg/config"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooknotify.yml")
	writeConfig(t, path, "listener:\n  port: 3000\n")

	changes := make(chan config.Config, 4)
	w := New(path, nil, func(cfg config.Config) { changes <- cfg })
	w.SetDelay(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// The watcher may not be registered yet, so keep writing until it reacts
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	var got config.Config
	for got == nil {
		select {
		case cfg := <-changes:
			got = cfg
		case <-tick.C:
			writeConfig(t, path, "listener:\n  port: 4000\n  endpoint: hooks\n")
		case <-deadline:
			t.Fatal("No reload received")
		}
	}

	if port, _ := got.Lookup("listener.port"); port != 4000 {
		t.Errorf("Expected port 4000, got %v", port)
	}
	if got.String("listener.endpoint") != "/hooks" {
		t.Errorf("Expected normalized endpoint, got %q", got.String("listener.endpoint"))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop on cancel")
	}
}

func TestWatcher_SkipsInvalidAndUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooknotify.yml")

	var calls []config.Config
	w := New(path, nil, func(cfg config.Config) { calls = append(calls, cfg) })

	writeConfig(t, path, "listener:\n  port: 3000\n")
	w.reload()
	if len(calls) != 1 {
		t.Fatalf("Expected first valid config to be published, got %d calls", len(calls))
	}

	w.reload()
	if len(calls) != 1 {
		t.Errorf("Expected unchanged config to be skipped, got %d calls", len(calls))
	}

	writeConfig(t, path, "listener:\n  endpoint: 42\n")
	w.reload()
	writeConfig(t, path, "listener: [unterminated\n")
	w.reload()
	if len(calls) != 1 {
		t.Errorf("Expected invalid configs to be skipped, got %d calls", len(calls))
	}

	os.Remove(path)
	w.reload()
	if len(calls) != 1 {
		t.Errorf("Expected missing file to be skipped, got %d calls", len(calls))
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "hooknotify.yml"), nil, func(config.Config) {})

	if err := w.Watch(context.Background()); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}
