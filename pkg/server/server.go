package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/ratelimiter/pkg/config"
	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/storage"
	"mercator-hq/ratelimiter/pkg/telemetry/health"
)

var (
	// ErrAlreadyRunning is returned by Listen when the server is already bound.
	ErrAlreadyRunning = errors.New("server is already running")

	// ErrNotListening is returned by Serve before Listen.
	ErrNotListening = errors.New("server is not listening")
)

// Dependencies are the components the admin server exposes.
// Registry is required; everything else is optional and its routes are
// omitted when nil.
type Dependencies struct {
	Registry *ratelimiter.Registry

	// Health provides /health and /ready.
	Health *health.Checker

	// Metrics is served at MetricsPath.
	Metrics     http.Handler
	MetricsPath string

	// Events backs /ratelimiters/{name}/events.
	Events storage.Backend

	Version health.VersionInfo
}

// Server is the admin HTTP server.
type Server struct {
	config *config.ServerConfig
	deps   Dependencies
	logger *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	running    bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates an admin server. A nil logger means slog.Default().
func New(cfg *config.ServerConfig, deps Dependencies, logger *slog.Logger) (*Server, error) {
	if deps.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	if deps.Metrics != nil && deps.MetricsPath == "" {
		deps.MetricsPath = config.DefaultMetricsPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config: cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
	}, nil
}

// Start binds the listen address and serves until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Listen binds the configured address without serving.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.running = true
	return nil
}

// Serve serves on the bound listener until ctx is cancelled or the server
// fails.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln, srv := s.listener, s.httpServer
	s.mu.Unlock()
	if ln == nil {
		return ErrNotListening
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errCh:
		if !ok {
			// Shutdown was called directly.
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the server, waiting at most the configured
// shutdown timeout for in-flight requests. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		s.mu.Unlock()
		if srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			s.shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		s.logger.Info("admin server stopped")
	})
	return s.shutdownErr
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsRunning reports whether the server is bound and not shut down.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Handler returns the admin routes wrapped in the middleware chain.
//
// Routes:
//
//	GET /ratelimiters                 all limiters with their snapshots
//	GET /ratelimiters/{name}          one limiter
//	GET /ratelimiters/{name}/events   recorded events (when event storage is enabled)
//	GET /health, /ready, /version     probes
//	GET <metrics path>                Prometheus metrics
//
// Only the /ratelimiters API is throttled by server.rate_limiter; probes
// and metrics never are.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /ratelimiters", s.listLimiters)
	api.HandleFunc("GET /ratelimiters/{name}", s.getLimiter)
	if s.deps.Events != nil {
		api.HandleFunc("GET /ratelimiters/{name}/events", s.listEvents)
	}

	var apiHandler http.Handler = api
	if s.config.RateLimiter != "" {
		apiHandler = RateLimitMiddleware(s.deps.Registry, s.config.RateLimiter)(apiHandler)
	}

	mux := http.NewServeMux()
	mux.Handle("/ratelimiters", apiHandler)
	mux.Handle("/ratelimiters/", apiHandler)
	if s.deps.Health != nil {
		mux.Handle("/health", s.deps.Health.LivenessHandler())
		mux.Handle("/ready", s.deps.Health.ReadinessHandler())
	}
	mux.Handle("/version", health.VersionHandler(s.deps.Version))
	if s.deps.Metrics != nil {
		mux.Handle(s.deps.MetricsPath, s.deps.Metrics)
	}

	return chain(mux,
		RecoveryMiddleware,
		RequestIDMiddleware(s.logger),
		LoggingMiddleware,
	)
}
