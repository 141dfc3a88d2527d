package notifier

import "hooknotify/pkg/listener"

// Logger is the logging surface accepted by the manager. *slog.Logger satisfies it.
type Logger = listener.Logger

// loggerSetter is implemented by factories whose logger follows the manager's
type loggerSetter interface {
	SetLogger(Logger)
}
