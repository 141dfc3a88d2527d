// Package consumer provides consumers configured from the consumer section.
package consumer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"hooknotify/pkg/cmdutil"
	"hooknotify/pkg/config"
	"hooknotify/pkg/listener"
)

// Environment variables passed to exec consumers
const (
	EnvID        = "HOOK_ID"
	EnvMethod    = "HOOK_METHOD"
	EnvPath      = "HOOK_PATH"
	EnvRequestID = "HOOK_REQUEST_ID"
	EnvQuery     = "HOOK_QUERY"
)

// Exec runs an external command for every notification. The body is written
// to the command's stdin and the metadata is passed in HOOK_* variables.
// A non-zero exit fails the delivery.
type Exec struct {
	command []string
	timeout time.Duration
	dir     string
	secrets []string
	logger  listener.Logger
}

// NewExec builds an exec consumer from decoded settings.
// secrets are redacted from logged command output.
func NewExec(settings *config.ConsumerSettings, logger listener.Logger, secrets ...string) (*Exec, error) {
	command, err := cmdutil.ParseCommandList(settings.Exec)
	if err != nil {
		return nil, fmt.Errorf("invalid consumer.exec: %w", err)
	}

	if logger == nil {
		logger = listener.DiscardLogger()
	}

	return &Exec{
		command: command,
		timeout: config.Timeout(settings.Timeout),
		dir:     settings.Dir,
		secrets: secrets,
		logger:  logger,
	}, nil
}

// Command returns the parsed command line
func (e *Exec) Command() []string {
	return e.command
}

// Consume implements listener.ConsumerFunc
func (e *Exec) Consume(ctx context.Context, n *listener.Notification) error {
	result, err := cmdutil.Run(ctx, cmdutil.ExecOptions{
		Dir:     e.dir,
		Timeout: e.timeout,
		Env: []string{
			EnvID + "=" + n.ID,
			EnvMethod + "=" + n.Method,
			EnvPath + "=" + n.Path,
			EnvRequestID + "=" + n.RequestID,
			EnvQuery + "=" + n.Query.Encode(),
		},
		Stdin: bytes.NewReader(n.Body),
	}, e.command)

	if result != nil {
		output := cmdutil.SanitizeOutput(result.Output(), e.secrets...)
		if err != nil {
			e.logger.Error("Consumer command failed",
				"id", n.ID,
				"command", cmdutil.FormatCommand(e.command),
				"exit_code", result.ExitCode,
				"output", string(output),
				"error", err,
			)
		} else {
			e.logger.Debug("Consumer command finished",
				"id", n.ID,
				"duration", result.Duration,
				"output", string(output),
			)
		}
	}

	return err
}

// Log returns a consumer that only logs notifications. It is used when no
// command is configured.
func Log(logger listener.Logger) listener.ConsumerFunc {
	if logger == nil {
		logger = listener.DiscardLogger()
	}
	return func(ctx context.Context, n *listener.Notification) error {
		logger.Info("Notification received",
			"id", n.ID,
			"method", n.Method,
			"path", n.Path,
			"bytes", len(n.Body),
			"remote_addr", n.RemoteAddr,
		)
		return nil
	}
}
