package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"hooknotify/internal/security"
	"hooknotify/pkg/config"
)

// Factory builds a Listener serving consumer according to cfg
type Factory interface {
	Create(cfg config.Config, consumer ConsumerFunc) (Listener, error)
}

// Listener binds a configured endpoint to a port.
// onListening is invoked once the socket is bound and the server is accepting.
type Listener interface {
	Listen(port int, onListening func(*Server)) (*Server, error)
}

// supportedMethods are the methods a webhook endpoint may be served on
var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// HTTPFactory is the default Factory. It serves the endpoint with a chi router.
type HTTPFactory struct {
	mu       sync.RWMutex
	logger   Logger
	recorder Recorder

	netListen func(network, addr string) (net.Listener, error)
}

// NewHTTPFactory creates a factory. recorder may be nil.
func NewHTTPFactory(logger Logger, recorder Recorder) *HTTPFactory {
	if logger == nil {
		logger = DiscardLogger()
	}
	return &HTTPFactory{
		logger:    logger,
		recorder:  recorder,
		netListen: net.Listen,
	}
}

// SetLogger replaces the logger used by listeners created afterwards
func (f *HTTPFactory) SetLogger(logger Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger = logger
}

// Create validates the listener settings and builds the router
func (f *HTTPFactory) Create(cfg config.Config, consumer ConsumerFunc) (Listener, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}

	settings, err := config.DecodeListener(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid listener settings: %w", err)
	}

	for _, method := range settings.Methods {
		if !supportedMethods[method] {
			return nil, fmt.Errorf("unsupported listener method %q", method)
		}
	}

	f.mu.RLock()
	logger := f.logger
	f.mu.RUnlock()

	if settings.Secret != "" && security.IsWeakSecret(settings.Secret) {
		logger.Warn("Listener secret looks weak", "endpoint", settings.Endpoint)
	}

	h := &webhookHandler{
		settings: settings,
		consumer: consumer,
		recorder: f.recorder,
		logger:   logger,
	}

	return &httpListener{
		settings:  settings,
		handler:   h.Router(),
		logger:    logger,
		netListen: f.netListen,
	}, nil
}

// httpListener implements Listener on top of net/http
type httpListener struct {
	settings  *config.ListenerSettings
	handler   http.Handler
	logger    Logger
	netListen func(network, addr string) (net.Listener, error)
}

// Listen binds the socket and starts serving in the background
func (l *httpListener) Listen(port int, onListening func(*Server)) (*Server, error) {
	addr := net.JoinHostPort(l.settings.Host, strconv.Itoa(port))

	ln, err := l.netListen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      l.handler,
			ReadTimeout:  config.Timeout(l.settings.ReadTimeout),
			WriteTimeout: config.Timeout(l.settings.WriteTimeout),
			IdleTimeout:  config.Timeout(l.settings.IdleTimeout),
		},
		listener: ln,
		endpoint: l.settings.Endpoint,
		done:     make(chan struct{}),
	}

	go srv.serve(onListening, l.logger)

	return srv, nil
}

// Server is the handle of a running listener. The caller owns it once returned.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	endpoint   string
	done       chan struct{}

	mu  sync.Mutex
	err error
}

func (s *Server) serve(onListening func(*Server), logger Logger) {
	defer close(s.done)

	if onListening != nil {
		onListening(s)
	}

	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Listener stopped", "addr", s.listener.Addr().String(), "error", err)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}
}

// Addr returns the bound address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Port returns the bound TCP port
func (s *Server) Port() int {
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	_, port, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}

// Endpoint returns the URL path the webhook is served on
func (s *Server) Endpoint() string {
	return s.endpoint
}

// URL returns the webhook URL reachable on the bound address.
// A wildcard bind is shown as loopback.
func (s *Server) URL() string {
	host := s.listener.Addr().String()
	if addr, ok := s.listener.Addr().(*net.TCPAddr); ok && (addr.IP == nil || addr.IP.IsUnspecified()) {
		host = net.JoinHostPort("127.0.0.1", strconv.Itoa(addr.Port))
	}
	return "http://" + host + s.endpoint
}

// Handler returns the HTTP handler serving the endpoint
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	<-s.done
	return nil
}

// Close stops the server immediately
func (s *Server) Close() error {
	return s.httpServer.Close()
}

// Done is closed once the server has stopped serving
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the server, if any
func (s *Server) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}
