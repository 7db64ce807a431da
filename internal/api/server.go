package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"inferd/internal/auth"
	"inferd/internal/config"
	"inferd/internal/inference"
	"inferd/internal/journal"
	"inferd/internal/registry"
)

// writeTimeoutSlack is added to the engine timeout so a slow engine fails
// with a JSON error instead of a dropped connection.
const writeTimeoutSlack = 5 * time.Second

// Deps are the collaborators the server orchestrates.
type Deps struct {
	Registry *registry.Registry
	Engine   inference.Engine
	Verifier *auth.Verifier
	Journal  *journal.Journal  // optional
	Metrics  *MetricsCollector // optional; nil disables /metrics
	Logger   *slog.Logger
}

// Server represents the HTTP API server
type Server struct {
	router   *http.ServeMux
	server   *http.Server
	addr     string
	cfg      *config.Config
	logger   *slog.Logger
	registry *registry.Registry
	engine   inference.Engine
	verifier *auth.Verifier
	journal  *journal.Journal
	metrics  *MetricsCollector
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		addr:     net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		cfg:      cfg,
		logger:   logger,
		registry: deps.Registry,
		engine:   deps.Engine,
		verifier: deps.Verifier,
		journal:  deps.Journal,
		metrics:  deps.Metrics,
		router:   http.NewServeMux(),
	}
	if s.verifier == nil {
		s.verifier = auth.NewVerifier(cfg.Auth.APIKey, cfg.Auth.APIKeyHash)
	}

	s.registerRoutes()

	engineTimeout := time.Duration(cfg.Inference.TimeoutSeconds) * time.Second
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.applyMiddleware(s.router),
		ReadTimeout:  seconds(cfg.Server.ReadTimeoutSeconds, 15),
		WriteTimeout: engineTimeout + writeTimeoutSlack,
		IdleTimeout:  seconds(cfg.Server.IdleTimeoutSeconds, 60),
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return s
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting HTTP server", "addr", ln.Addr().String())

	if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server shut down successfully")
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.server.Handler.ServeHTTP(w, r)
}

// applyMiddleware wraps the handler with middleware in the correct order
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// Apply middleware in reverse order (last one wraps first)
	handler = RecoveryMiddleware(s.logger)(handler)
	handler = DecompressionMiddleware()(handler)
	handler = MetricsMiddleware(s.metrics)(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware()(handler)
	if s.cfg.Server.Gzip {
		handler = GzipMiddleware()(handler)
	}
	handler = CORSMiddleware(s.cfg.Server.CORSOrigin)(handler)
	return handler
}
