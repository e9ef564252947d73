package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"idp-hq/assess/pkg/anthro"
	"idp-hq/assess/pkg/config"
	"idp-hq/assess/pkg/evaluation"
	"idp-hq/assess/pkg/telemetry/health"
	"idp-hq/assess/pkg/telemetry/metrics"
	"idp-hq/assess/pkg/telemetry/tracing"
)

// Evaluations is the part of *evaluation.Service the API needs.
type Evaluations interface {
	Submit(ctx context.Context, sub evaluation.Submission) (*evaluation.SubmitResult, error)
	Get(ctx context.Context, id string) (*evaluation.View, error)
	Delete(ctx context.Context, id string) error
}

// Dependencies are the components the server routes to. Evaluations and
// Datasets are required; the rest are optional.
type Dependencies struct {
	Evaluations Evaluations
	Datasets    anthro.Catalog

	// Health defaults to a checker with no registered checks.
	Health *health.Checker

	// Metrics, when set, records per-route metrics and is served at
	// MetricsPath (default "/metrics").
	Metrics     *metrics.Collector
	MetricsPath string

	Tracer *tracing.Tracer
	Logger *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	config     *config.ServerConfig
	deps       Dependencies
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server

	mu           sync.Mutex
	isRunning    bool
	shutdownOnce sync.Once
}

// NewServer creates a server. It does not listen until Start is called.
func NewServer(cfg *config.ServerConfig, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(5*time.Second, "")
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = config.DefaultMetricsPath
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger.With("component", "server"),
	}
	s.handler = s.setupRoutes()
	return s
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves until ctx is
// cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server within the configured
// shutdown timeout. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		running := s.isRunning
		s.mu.Unlock()
		if !running {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server shutdown complete")
	})

	return shutdownErr
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/evaluations", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/evaluations/{id}", s.handleGetEvaluation)
	mux.HandleFunc("DELETE /api/v1/evaluations/{id}", s.handleDeleteEvaluation)

	mux.HandleFunc("GET /api/v1/datasets/anthropometrics/{id}", s.handleGetDataset)
	mux.HandleFunc("GET /api/v1/datasets/anthropometrics/{id}/percentile", s.handlePercentile)

	liveness := s.deps.Health.LivenessHandler()
	mux.HandleFunc("GET /health", liveness)
	mux.HandleFunc("GET /api/v1/health", liveness)
	mux.HandleFunc("GET /ready", s.deps.Health.ReadinessHandler())

	if s.deps.Metrics != nil {
		mux.Handle("GET "+s.deps.MetricsPath, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = metricsMiddleware(s.deps.Metrics, handler)
	handler = tracing.HTTPMiddleware(s.deps.Tracer, handler)
	handler = recoveryMiddleware(s.logger, handler)
	handler = loggingMiddleware(s.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}
