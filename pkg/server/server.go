package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/viewdiff/pkg/mounting"
)

// Server exposes a surface registry over HTTP and streams committed
// transactions to WebSocket subscribers.
type Server struct {
	config   *Config
	surfaces *mounting.Registry
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *httpMetrics

	mu           sync.Mutex
	httpServer   *http.Server
	shuttingDown bool
	done         chan struct{}
	streams      sync.WaitGroup
}

// New creates a server for surfaces. A nil config uses DefaultConfig().
func New(config *Config, surfaces *mounting.Registry) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	s := &Server{
		config:   config,
		surfaces: surfaces,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:  slog.Default().With("component", "server"),
		metrics: newHTTPMetrics(config.Registerer, config.MetricsNamespace),
		done:    make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

// SetLogger sets the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger.With("component", "server")
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.config.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/surfaces", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Put("/", s.handleStart)
			r.Delete("/", s.handleStop)
			r.Get("/tree", s.handleTree)
			r.Post("/commits", s.handleCommit)
			r.Get("/stream", s.handleStream)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadTimeout,
		ReadTimeout:       s.config.ReadTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.WithoutCancel(ctx))
	}
}

// Shutdown closes every stream with a shutdown notice, then stops the
// HTTP server. It does not stop the surfaces.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	if !s.shuttingDown {
		s.shuttingDown = true
		close(s.done)
	}
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	waited := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		s.logger.Error("shutdown error", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Surfaces returns the surface registry.
func (s *Server) Surfaces() *mounting.Registry {
	return s.surfaces
}

// Config returns the server configuration.
func (s *Server) Config() *Config {
	return s.config
}
