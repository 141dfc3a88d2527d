package consumer

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"hooknotify/pkg/config"
	"hooknotify/pkg/listener"
)

type memoryLogger struct {
	mu       sync.Mutex
	messages []string
	args     [][]any
}

func (m *memoryLogger) add(msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	m.args = append(m.args, args)
}

func (m *memoryLogger) Debug(msg string, args ...any) { m.add(msg, args) }
func (m *memoryLogger) Info(msg string, args ...any)  { m.add(msg, args) }
func (m *memoryLogger) Warn(msg string, args ...any)  { m.add(msg, args) }
func (m *memoryLogger) Error(msg string, args ...any) { m.add(msg, args) }

func testNotification() *listener.Notification {
	return &listener.Notification{
		ID:        "6a1f0c3e-0000-4000-8000-000000000001",
		RequestID: "host/req-000001",
		Method:    "POST",
		Path:      "/webhook",
		Query:     url.Values{"source": {"ci"}},
		Body:      []byte(`{"ref":"refs/heads/main"}`),
	}
}

func TestExec_PassesBodyAndEnvironment(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")

	e, err := NewExec(&config.ConsumerSettings{
		Exec:    []any{"sh", "-c", `cat > "$0"; echo "$HOOK_ID $HOOK_METHOD $HOOK_PATH $HOOK_REQUEST_ID $HOOK_QUERY" >> "$0"`, out},
		Timeout: 5,
	}, nil)
	if err != nil {
		t.Fatalf("NewExec() error = %v", err)
	}

	n := testNotification()
	if err := e.Consume(context.Background(), n); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read command output: %v", err)
	}

	want := `{"ref":"refs/heads/main"}` + n.ID + " POST /webhook host/req-000001 source=ci\n"
	if string(data) != want {
		t.Errorf("command saw %q, want %q", data, want)
	}
}

func TestExec_StringCommandAndDir(t *testing.T) {
	dir := t.TempDir()

	e, err := NewExec(&config.ConsumerSettings{
		Exec:    `sh -c "cat > received.json"`,
		Timeout: 5,
		Dir:     dir,
	}, nil)
	if err != nil {
		t.Fatalf("NewExec() error = %v", err)
	}
	if len(e.Command()) != 3 {
		t.Errorf("Expected 3 command parts, got %v", e.Command())
	}

	if err := e.Consume(context.Background(), testNotification()); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "received.json")); err != nil {
		t.Errorf("Expected command to run in %s: %v", dir, err)
	}
}

func TestExec_FailureIsReportedAndRedacted(t *testing.T) {
	logger := &memoryLogger{}
	secret := "k9T2vQx7LmP4sR8wZ1yB6nC3dF5gH0jE"

	e, err := NewExec(&config.ConsumerSettings{
		Exec:    []any{"sh", "-c", "echo using " + secret + "; exit 2"},
		Timeout: 5,
	}, logger, secret)
	if err != nil {
		t.Fatalf("NewExec() error = %v", err)
	}

	if err := e.Consume(context.Background(), testNotification()); err == nil {
		t.Fatal("Expected a non-zero exit to fail the delivery")
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.messages) != 1 || logger.messages[0] != "Consumer command failed" {
		t.Fatalf("Unexpected log messages %v", logger.messages)
	}
	for _, arg := range logger.args[0] {
		if s, ok := arg.(string); ok && strings.Contains(s, secret) {
			t.Errorf("secret leaked into log: %q", s)
		}
	}
}

func TestNewExec_InvalidCommand(t *testing.T) {
	tests := []any{nil, 42, "", []any{}, `echo "unterminated`}

	for _, command := range tests {
		if _, err := NewExec(&config.ConsumerSettings{Exec: command}, nil); err == nil {
			t.Errorf("NewExec(%#v) expected error", command)
		}
	}
}

func TestLog(t *testing.T) {
	logger := &memoryLogger{}

	if err := Log(logger)(context.Background(), testNotification()); err != nil {
		t.Fatalf("Log consumer returned %v", err)
	}

	if len(logger.messages) != 1 || logger.messages[0] != "Notification received" {
		t.Errorf("Unexpected log messages %v", logger.messages)
	}
}
