package notifier

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"hooknotify/pkg/config"
	"hooknotify/pkg/listener"
)

// PortEnv names the environment variable that overrides listener.port
const PortEnv = "PORT"

// Manager owns the configuration, the registered consumer and the logger
// used to start webhook listeners. It is safe for concurrent use.
type Manager struct {
	store    *config.Store
	registry *Registry
	factory  listener.Factory
	recorder listener.Recorder
	lookup   func(string) (string, bool)

	mu        sync.RWMutex
	logger    Logger
	loggerSet bool
}

// Option configures a Manager
type Option func(*Manager)

// WithFactory replaces the default chi based listener factory
func WithFactory(factory listener.Factory) Option {
	return func(m *Manager) {
		m.factory = factory
	}
}

// WithLogger sets the initial logger
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
			m.loggerSet = true
		}
	}
}

// WithEnv replaces os.LookupEnv for the port override
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(m *Manager) {
		m.lookup = lookup
	}
}

// WithDefaults replaces the built-in default configuration
func WithDefaults(defaults config.Config) Option {
	return func(m *Manager) {
		m.store = config.NewStore(defaults)
	}
}

// WithRecorder journals deliveries handled by the default factory.
// It has no effect together with WithFactory.
func WithRecorder(recorder listener.Recorder) Option {
	return func(m *Manager) {
		m.recorder = recorder
	}
}

// New creates a manager with the built-in defaults and no consumer
func New(opts ...Option) *Manager {
	m := &Manager{
		store:    config.NewStore(nil),
		registry: NewRegistry(),
		lookup:   os.LookupEnv,
		logger:   listener.DiscardLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.factory == nil {
		m.factory = listener.NewHTTPFactory(m.logger, m.recorder)
	} else if setter, ok := m.factory.(loggerSetter); ok && m.loggerSet {
		setter.SetLogger(m.logger)
	}

	return m
}

// Register replaces the consumer invoked for every notification.
// See Registry.Register for the accepted function shapes.
func (m *Manager) Register(consumer any) (bool, error) {
	return m.registry.Register(consumer)
}

// SetConfig deep-merges overrides into the active configuration
func (m *Manager) SetConfig(overrides config.Config) {
	m.store.Set(overrides)
}

// GetConfig returns the active configuration. It is not a copy.
func (m *Manager) GetConfig() config.Config {
	return m.store.Get()
}

// InitConfig restores the default configuration
func (m *Manager) InitConfig() {
	m.store.Init()
}

// ValidateConfig returns the normalized candidate, or the first shape error
func (m *Manager) ValidateConfig(candidate config.Config) (config.Config, error) {
	return config.ValidateConfig(candidate)
}

// SetLogger replaces the logger. Factories with a SetLogger method follow it.
func (m *Manager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}

	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()

	if setter, ok := m.factory.(loggerSetter); ok {
		setter.SetLogger(logger)
	}
}

// Logger returns the active logger
func (m *Manager) Logger() Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.logger
}

// Start merges overrides into the active configuration, validates it and
// binds a listener serving the registered consumer.
//
// The returned future resolves with the server once it accepts connections.
// Every failure, including a panic in the factory, rejects it instead.
// A logger passed here is installed as with SetLogger.
func (m *Manager) Start(ctx context.Context, overrides config.Config, logger ...Logger) *Future {
	future := newFuture()

	func() {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("listener start panicked: %v", r)
				m.Logger().Error("Listener not started", "error", err)
				future.reject(err)
			}
		}()

		if err := m.start(ctx, overrides, logger, future); err != nil {
			future.reject(err)
		}
	}()

	return future
}

func (m *Manager) start(ctx context.Context, overrides config.Config, logger []Logger, future *Future) error {
	if len(logger) > 0 && logger[0] != nil {
		m.SetLogger(logger[0])
	}
	log := m.Logger()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.store.Set(overrides)
	cfg, err := config.ValidateConfig(m.store.Get())
	if err != nil {
		log.Warn("Invalid listener configuration", "error", err)
		return err
	}
	m.store.Replace(cfg)
	cfg = m.store.Get()

	consumer, ok := m.registry.Consumer()
	if !ok {
		log.Error("Listener not started", "error", ErrMissingConsumer)
		return ErrMissingConsumer
	}

	port, err := m.port(cfg)
	if err != nil {
		return err
	}

	l, err := m.factory.Create(cfg, consumer)
	if err != nil {
		log.Error("Failed to create listener", "port", port, "error", err)
		return &BindError{Port: port, Err: err}
	}

	_, err = l.Listen(port, func(srv *listener.Server) {
		if !future.resolve(srv) {
			// Start already failed, nobody owns this server
			srv.Close()
			return
		}
		log.Info("Listener started", "port", srv.Port(), "endpoint", srv.Endpoint())
	})
	if err != nil {
		log.Error("Failed to bind listener", "port", port, "error", err)
		return &BindError{Port: port, Err: err}
	}

	return nil
}

// port resolves the port to bind. PORT wins over listener.port.
func (m *Manager) port(cfg config.Config) (int, error) {
	if value, ok := m.lookup(PortEnv); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, &config.InvalidPortError{Value: value, Reason: "from " + PortEnv + " must be a number"}
		}
		return config.PortNumber(n)
	}

	value, _ := cfg.Lookup(config.ListenerKey + ".port")
	return config.PortNumber(value)
}
