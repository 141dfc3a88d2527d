package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hooknotify/pkg/config"
	"hooknotify/pkg/listener"
	"hooknotify/pkg/notifier"

	"github.com/spf13/cobra"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configFile = ""
		strictSecret = false
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("merges and normalizes", func(t *testing.T) {
		path := writeFile(t, dir, "ok.yml", "listener:\n  endpoint: hook\n  secret: abc\n")

		cfg, got, err := loadConfig(path)
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if got != path {
			t.Errorf("path = %q, want %q", got, path)
		}
		if cfg.String("listener.endpoint") != "/hook" {
			t.Errorf("endpoint = %q, want /hook", cfg.String("listener.endpoint"))
		}
		if p, _ := cfg.Lookup("listener.port"); p != config.DefaultPort {
			t.Errorf("port = %v, want default", p)
		}
	})

	t.Run("invalid port", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yml", "listener:\n  port: abc\n")
		if _, _, err := loadConfig(path); err == nil {
			t.Error("Expected an error for a non-numeric port")
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		if _, _, err := loadConfig(filepath.Join(dir, "missing.yml")); err == nil {
			t.Error("Expected an error for a missing file")
		}
	})

	t.Run("defaults when nothing is found", func(t *testing.T) {
		empty := t.TempDir()
		chdir(t, empty)
		t.Setenv("XDG_CONFIG_HOME", empty)

		cfg, path, err := loadConfig("")
		if err != nil {
			t.Fatalf("loadConfig() error = %v", err)
		}
		if path != "" {
			t.Errorf("path = %q, want empty", path)
		}
		if cfg.String("listener.endpoint") != config.DefaultEndpoint {
			t.Errorf("Expected defaults, got %v", cfg)
		}
	})
}

func TestServeFlagOverrides(t *testing.T) {
	defer func() { host, port = "", 0 }()

	cmd := &cobra.Command{}
	cmd.Flags().IntVar(&port, "port", 0, "")

	if got := serveFlagOverrides(cmd); len(got) != 0 {
		t.Errorf("Expected no overrides, got %v", got)
	}

	host = "127.0.0.1"
	cmd.Flags().Set("port", "8080")

	got := serveFlagOverrides(cmd)
	if got.String("listener.host") != "127.0.0.1" {
		t.Errorf("host = %q", got.String("listener.host"))
	}
	if p, _ := got.Lookup("listener.port"); p != 8080 {
		t.Errorf("port = %v, want 8080", p)
	}
}

func TestBuildConsumer(t *testing.T) {
	logger := listener.DiscardLogger()

	fn, err := buildConsumer(config.Default(), logger)
	if err != nil || fn == nil {
		t.Fatalf("Expected log consumer, got %v", err)
	}

	cfg := config.Merge(config.Default(), config.Config{"consumer": map[string]any{"exec": "cat"}})
	if fn, err := buildConsumer(cfg, logger); err != nil || fn == nil {
		t.Fatalf("Expected exec consumer, got %v", err)
	}

	cfg = config.Merge(config.Default(), config.Config{"consumer": map[string]any{"exec": []any{}}})
	if _, err := buildConsumer(cfg, logger); err == nil {
		t.Error("Expected an error for an empty command")
	}
}

func TestSetupLogging(t *testing.T) {
	if _, _, err := setupLogging("", "loud"); err == nil {
		t.Error("Expected an error for an unknown level")
	}

	path := filepath.Join(t.TempDir(), "logs", "hooknotify.log")
	logger, closer, err := setupLogging(path, "debug")
	if err != nil {
		t.Fatalf("setupLogging() error = %v", err)
	}
	logger.Debug("written", "key", "value")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written"`) {
		t.Errorf("Expected JSON record in log file, got %q", data)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()

	good := writeFile(t, dir, "good.yml", `
listener:
  port: 8080
  endpoint: hooks/github
  secret: "kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS2uW5yA7bD0fG3hK6"
consumer:
  exec: ["jq", ".ref"]
`)
	out, err := execute(t, "check", "--config", good)
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
	for _, want := range []string{":8080/hooks/github", "jq .ref", "X-Hub-Signature-256", "OK"} {
		if !strings.Contains(out, want) {
			t.Errorf("check output missing %q:\n%s", want, out)
		}
	}

	weak := writeFile(t, dir, "weak.yml", "listener:\n  secret: changeme\n")
	if out, err := execute(t, "check", "--strict", "--config", weak); err == nil {
		t.Errorf("Expected --strict to reject a weak secret:\n%s", out)
	}

	invalid := writeFile(t, dir, "invalid.yml", "listener:\n  endpoint: 42\n")
	if _, err := execute(t, "check", "--config", invalid); err == nil {
		t.Error("Expected an invalid endpoint to fail")
	}
}

func TestSecretCommand(t *testing.T) {
	out, err := execute(t, "secret")
	if err != nil {
		t.Fatalf("secret failed: %v", err)
	}
	if len(strings.TrimSpace(out)) != 48 {
		t.Errorf("Expected a 48 character secret, got %q", out)
	}
}

func TestRunner_StartAndRestart(t *testing.T) {
	t.Setenv("PORT", "")

	r := &runner{
		manager: notifier.New(),
		logger:  listener.DiscardLogger(),
	}
	ctx := context.Background()

	base := config.Config{"listener": map[string]any{"host": "127.0.0.1", "port": 0}}
	if err := r.start(ctx, base); err != nil {
		t.Fatalf("start() error = %v", err)
	}
	defer r.stop()

	first := r.server
	if first.Endpoint() != config.DefaultEndpoint {
		t.Errorf("endpoint = %q", first.Endpoint())
	}

	r.restart(ctx, config.Merge(base, config.Config{"listener": map[string]any{"endpoint": "next"}}))
	if r.server == first {
		t.Fatal("Expected a new server after restart")
	}
	if r.server.Endpoint() != "/next" {
		t.Errorf("endpoint after restart = %q, want /next", r.server.Endpoint())
	}
	select {
	case <-first.Done():
	default:
		t.Error("Expected the previous server to be stopped")
	}

	// An invalid configuration keeps the previous settings running
	r.restart(ctx, config.Config{"listener": map[string]any{"endpoint": 42}})
	if r.server == nil || r.server.Endpoint() != "/next" {
		t.Errorf("Expected previous listener to be restored, got %v", r.server)
	}
}

// chdir changes the working directory for the duration of the test
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
