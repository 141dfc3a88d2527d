// Package cmdutil runs external commands for consumers configured in YAML.
package cmdutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
)

// Redacted replaces secrets in command output
const Redacted = "***REDACTED***"

// ExecOptions configures command execution
type ExecOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Timeout bounds execution. Zero means no timeout.
	Timeout time.Duration

	// Env entries in "KEY=value" form. They are appended to the parent
	// environment unless IsolateEnv is set.
	Env        []string
	IsolateEnv bool

	// Stdin is fed to the command when non-nil
	Stdin io.Reader
}

// Result describes a finished command
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Output returns stdout followed by stderr
func (r *Result) Output() []byte {
	if r == nil {
		return nil
	}
	return append(append([]byte(nil), r.Stdout...), r.Stderr...)
}

// Run executes cmdParts. A non-zero exit, a timeout or a start failure is
// returned as an error together with whatever result was collected.
func Run(ctx context.Context, opts ExecOptions, cmdParts []string) (*Result, error) {
	if len(cmdParts) == 0 {
		return nil, errors.New("empty command")
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cmdParts[0], cmdParts[1:]...)
	cmd.Dir = opts.Dir
	if opts.IsolateEnv {
		cmd.Env = append([]string{}, opts.Env...)
	} else if len(opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), opts.Env...)
	}
	cmd.Stdin = opts.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return result, fmt.Errorf("command %s timed out after %s", FormatCommand(cmdParts), opts.Timeout)
	}
	if err != nil {
		return result, fmt.Errorf("command %s failed: %w", FormatCommand(cmdParts), err)
	}

	return result, nil
}

// ParseCommandString splits a shell-quoted command string.
//
//	`notify-send "new hook"` -> ["notify-send", "new hook"]
func ParseCommandString(cmdStr string) ([]string, error) {
	parts, err := shellquote.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command string: %w", err)
	}
	if len(parts) == 0 {
		return nil, errors.New("empty command string")
	}
	return parts, nil
}

// ParseCommandList accepts the two YAML forms of a command: a shell-quoted
// string or a list of arguments.
func ParseCommandList(cmd any) ([]string, error) {
	switch v := cmd.(type) {
	case string:
		return ParseCommandString(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("command list item %d is not a string: %T", i, item)
			}
			parts[i] = str
		}
		if len(parts) == 0 {
			return nil, errors.New("empty command list")
		}
		return parts, nil
	case []string:
		if len(v) == 0 {
			return nil, errors.New("empty command list")
		}
		return v, nil
	default:
		return nil, fmt.Errorf("invalid command type: %T (must be string or list)", cmd)
	}
}

// FormatCommand renders cmdParts for logs, quoting where needed
func FormatCommand(cmdParts []string) string {
	if len(cmdParts) == 0 {
		return "<empty command>"
	}
	return shellquote.Join(cmdParts...)
}

// SanitizeOutput replaces every non-empty secret in output with Redacted
func SanitizeOutput(output []byte, secrets ...string) []byte {
	sanitized := string(output)
	for _, secret := range secrets {
		if secret != "" {
			sanitized = strings.ReplaceAll(sanitized, secret, Redacted)
		}
	}
	return []byte(sanitized)
}
