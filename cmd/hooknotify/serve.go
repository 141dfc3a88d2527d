package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hooknotify/internal/consumer"
	"hooknotify/internal/journal"
	"hooknotify/internal/reload"
	"hooknotify/pkg/config"
	"hooknotify/pkg/listener"
	"hooknotify/pkg/notifier"

	"github.com/spf13/cobra"
)

// shutdownTimeout bounds how long in-flight requests may finish
const shutdownTimeout = 10 * time.Second

var (
	logFile     string
	logLevel    string
	journalPath string
	host        string
	port        int
	watch       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook listener",
	Long: `Start the webhook listener described by the configuration file.

Each accepted request runs consumer.exec with the body on stdin, or is logged
when no command is configured. The PORT environment variable overrides
listener.port.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("HOOKNOTIFY_LOG_FILE", ""), "Also write logs to this file")
	serveCmd.Flags().StringVar(&logLevel, "log-level", getEnvOrDefault("HOOKNOTIFY_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&journalPath, "journal", getEnvOrDefault("HOOKNOTIFY_JOURNAL", ""), "SQLite delivery journal (overrides journal.path)")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("HOOKNOTIFY_HOST", ""), "Host to bind to (overrides listener.host)")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("HOOKNOTIFY_PORT", 0), "Port to listen on (overrides listener.port)")
	serveCmd.Flags().BoolVar(&watch, "watch", false, "Restart the listener when the configuration file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, logCloser, err := setupLogging(logFile, logLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logCloser.Close()

	overrides, path, err := loadOverrides(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return err
	}
	logger.Info("Starting hooknotify", "version", version, "config", displayPath(path))

	flagOverrides := serveFlagOverrides(cmd)
	overrides = config.Merge(overrides, flagOverrides)

	jnl, err := openJournal(config.Merge(config.Default(), overrides), journalPath)
	if err != nil {
		logger.Error("Failed to open delivery journal", "error", err)
		return err
	}

	opts := []notifier.Option{notifier.WithLogger(logger)}
	if jnl != nil {
		defer jnl.Close()
		opts = append(opts, notifier.WithRecorder(jnl))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := &runner{
		manager: notifier.New(opts...),
		logger:  logger,
	}
	if err := r.start(ctx, overrides); err != nil {
		return err
	}
	defer r.stop()

	if watch && path != "" {
		w := reload.New(path, logger, func(changed config.Config) {
			r.restart(ctx, config.Merge(changed, flagOverrides))
		})
		go func() {
			if err := w.Watch(ctx); err != nil {
				logger.Error("Configuration watch stopped", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		return nil
	case err := <-r.failed():
		return err
	}
}

// serveFlagOverrides turns explicitly set flags into listener overrides
func serveFlagOverrides(cmd *cobra.Command) config.Config {
	section := map[string]any{}
	if host != "" {
		section["host"] = host
	}
	if cmd.Flags().Changed("port") || port != 0 {
		section["port"] = port
	}
	if len(section) == 0 {
		return config.Config{}
	}
	return config.Config{config.ListenerKey: section}
}

// openJournal opens the journal named by the flag or journal.path.
// It returns nil when journaling is disabled.
func openJournal(cfg config.Config, flagPath string) (*journal.Journal, error) {
	path := flagPath
	if path == "" {
		settings, err := config.DecodeJournal(cfg)
		if err != nil {
			return nil, err
		}
		path = settings.Path
	}
	if path == "" {
		return nil, nil
	}
	return journal.Open(path)
}

// buildConsumer returns the exec consumer, or the log consumer when
// consumer.exec is not set
func buildConsumer(cfg config.Config, logger listener.Logger) (listener.ConsumerFunc, error) {
	settings, err := config.DecodeConsumer(cfg)
	if err != nil {
		return nil, err
	}
	if settings.Exec == nil {
		return consumer.Log(logger), nil
	}

	var secrets []string
	if secret := cfg.String(config.ListenerKey + ".secret"); secret != "" {
		secrets = append(secrets, secret)
	}

	e, err := consumer.NewExec(settings, logger, secrets...)
	if err != nil {
		return nil, err
	}
	logger.Info("Using exec consumer", "command", e.Command())

	if listenerSettings, err := config.DecodeListener(cfg); err == nil && settings.Timeout >= listenerSettings.WriteTimeout {
		logger.Warn("Consumer timeout exceeds the listener write timeout, slow commands will be answered with 504",
			"consumer_timeout", settings.Timeout, "write_timeout", listenerSettings.WriteTimeout)
	}
	return e.Consume, nil
}

// runner owns the running server and swaps it on configuration reloads
type runner struct {
	manager *notifier.Manager
	logger  listener.Logger

	mu      sync.Mutex
	server  *listener.Server
	current config.Config
	errs    chan error
}

func (r *runner) start(ctx context.Context, overrides config.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.startLocked(ctx, overrides)
}

func (r *runner) startLocked(ctx context.Context, overrides config.Config) error {
	r.manager.InitConfig()

	fn, err := buildConsumer(config.Merge(config.Default(), overrides), r.logger)
	if err != nil {
		return fmt.Errorf("invalid consumer: %w", err)
	}
	if _, err := r.manager.Register(fn); err != nil {
		return err
	}

	srv, err := r.manager.Start(ctx, overrides).Wait(ctx)
	if err != nil {
		return fmt.Errorf("failed to start listener: %w", err)
	}

	r.server = srv
	r.current = overrides
	go r.watchServer(srv)
	return nil
}

// watchServer reports a server that stops on its own
func (r *runner) watchServer(srv *listener.Server) {
	<-srv.Done()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.server == srv && srv.Err() != nil {
		select {
		case r.failedLocked() <- srv.Err():
		default:
		}
	}
}

func (r *runner) failed() <-chan error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.failedLocked()
}

func (r *runner) failedLocked() chan error {
	if r.errs == nil {
		r.errs = make(chan error, 1)
	}
	return r.errs
}

// restart replaces the running server. The old server is stopped first so
// the new one can bind the same port. If the new configuration fails the
// previous one is started again.
func (r *runner) restart(ctx context.Context, overrides config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.current
	r.stopLocked()

	err := r.startLocked(ctx, overrides)
	if err == nil {
		r.logger.Info("Listener restarted", "port", r.server.Port())
		return
	}
	r.logger.Error("Failed to apply new configuration", "error", err)

	if err := r.startLocked(ctx, previous); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("Failed to restore previous listener", "error", err)
		select {
		case r.failedLocked() <- err:
		default:
		}
	}
}

func (r *runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
}

func (r *runner) stopLocked() {
	if r.server == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	srv := r.server
	r.server = nil
	if err := srv.Shutdown(ctx); err != nil {
		r.logger.Warn("Graceful shutdown failed", "error", err)
		srv.Close()
	}
}
