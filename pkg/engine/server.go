package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/getmockd/stubby/internal/storage"
	"github.com/getmockd/stubby/pkg/config"
	"github.com/getmockd/stubby/pkg/logging"
	"github.com/getmockd/stubby/pkg/metrics"
	"github.com/getmockd/stubby/pkg/proxy"
	"github.com/getmockd/stubby/pkg/requestlog"
	"github.com/getmockd/stubby/pkg/websocket"
)

// Default listen addresses.
const (
	DefaultAddr    = "localhost:8882"
	DefaultTLSAddr = "localhost:7443"
)

// ShutdownTimeout bounds a graceful stop.
const ShutdownTimeout = 5 * time.Second

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server is already running")

// Server is the stub server.
type Server struct {
	repo      *storage.Repository
	log       *slog.Logger
	addr      string
	tlsAddr   string
	tlsConfig *tls.Config
	selector  proxy.Selector
	version   string
	registry  *metrics.Registry
	metrics   *metrics.Server
	ws        *websocket.Handler
	handler   *Handler
	requests  requestlog.Store

	mu          sync.Mutex
	httpServer  *http.Server
	listener    net.Listener
	tlsListener net.Listener
	running     bool
	startTime   time.Time
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithAddr sets the listen address. Port 0 picks a free port.
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithTLS adds an HTTPS listener on addr serving the same stubs. An empty
// addr means DefaultTLSAddr.
func WithTLS(addr string, cfg *tls.Config) ServerOption {
	return func(s *Server) {
		if addr == "" {
			addr = DefaultTLSAddr
		}
		s.tlsAddr = addr
		s.tlsConfig = cfg
	}
}

// WithProxySelector sets the proxy config selection for unmatched requests.
func WithProxySelector(sel proxy.Selector) ServerOption {
	return func(s *Server) {
		s.selector = sel
	}
}

// WithMetrics records metrics on reg and serves them under the admin prefix.
func WithMetrics(reg *metrics.Registry) ServerOption {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithRequestLog sets the journal behind the admin requests endpoints. By
// default the server keeps the last requestlog.DefaultCapacity requests in
// memory.
func WithRequestLog(store requestlog.Store) ServerOption {
	return func(s *Server) {
		s.requests = store
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a Server answering from repo.
func NewServer(repo *storage.Repository, opts ...ServerOption) *Server {
	s := &Server{
		repo:      repo,
		log:       logging.Nop(),
		addr:      DefaultAddr,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ws = websocket.NewHandler(websocket.WithLogger(logging.Component(s.log, "websocket")))
	if s.registry != nil {
		s.metrics = metrics.NewServer(s.registry)
		s.registry.NewGaugeFunc("stubby_websocket_connections", "Open web socket connections", func() float64 {
			return float64(s.ws.Active())
		})
		s.observeConfigured(repo.Snapshot().Config())
	}
	forwarder := proxy.NewForwarder(proxy.WithLogger(logging.Component(s.log, "proxy")))
	s.handler = NewHandler(repo, s.selector, forwarder, s.ws, s.metrics, s.log)
	if s.requests == nil {
		s.requests = requestlog.NewMemoryStore(requestlog.DefaultCapacity)
	}
	s.handler.journal = s.requests
	return s
}

// Handler returns the root http.Handler, admin routes included.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Route(AdminPrefix, s.adminRoutes)
	r.NotFound(s.handler.ServeHTTP)
	r.MethodNotAllowed(s.handler.ServeHTTP)
	return r
}

// Start binds the listeners and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	var tlsLn net.Listener
	if s.tlsConfig != nil {
		raw, err := net.Listen("tcp", s.tlsAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.tlsAddr, err)
		}
		tlsLn = tls.NewListener(raw, s.tlsConfig)
	}

	s.listener = ln
	s.tlsListener = tlsLn
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	s.running = true
	s.startTime = time.Now()

	s.serve(ln, "http")
	if tlsLn != nil {
		s.serve(tlsLn, "https")
	}
	return nil
}

func (s *Server) serve(ln net.Listener, scheme string) {
	s.log.Info("stub server listening", "addr", ln.Addr().String(), "scheme", scheme)
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "scheme", scheme, "error", err)
		}
	}(s.httpServer)
}

// Run starts the server and stops it when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.ws.CloseAll()
	if err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// Addr returns the bound HTTP address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// TLSAddr returns the bound HTTPS address, or "" without TLS.
func (s *Server) TLSAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tlsListener != nil {
		return s.tlsListener.Addr().String()
	}
	return s.tlsAddr
}

// URL returns the base HTTP URL.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// TLSURL returns the base HTTPS URL, or "" without TLS.
func (s *Server) TLSURL() string {
	if s.tlsConfig == nil {
		return ""
	}
	return "https://" + s.TLSAddr()
}

// Reload swaps in cfg. Requests already in flight finish on the old snapshot.
func (s *Server) Reload(cfg *config.Configuration) {
	snap := s.repo.Replace(cfg)
	cfg = snap.Config()
	s.observeConfigured(cfg)
	s.metrics.ObserveReload(true)
	s.log.Info("configuration reloaded",
		"version", snap.Version(),
		"lifecycles", len(cfg.Lifecycles),
		"proxy_configs", len(cfg.ProxyConfigs),
		"web_socket_configs", len(cfg.WebSocketConfigs),
	)
}

// ReloadFailed records a reload that was rejected; the old snapshot stays.
func (s *Server) ReloadFailed(err error) {
	s.metrics.ObserveReload(false)
	s.log.Error("configuration reload failed, keeping previous configuration", "error", err)
}

func (s *Server) observeConfigured(cfg *config.Configuration) {
	if cfg == nil {
		return
	}
	s.metrics.SetConfigured(len(cfg.Lifecycles), len(cfg.ProxyConfigs), len(cfg.WebSocketConfigs))
}
