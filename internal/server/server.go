// Package server exposes analysis runs over an HTTP API with background
// jobs and a websocket stream for job progress.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sitepanel/sitepanel/internal/metrics"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/service"
)

// Server wires the HTTP API around a Runner and a job manager.
type Server struct {
	runner   service.Runner
	jobs     *service.JobManager
	personas map[string]persona.Persona
	metrics  *metrics.Collector
	logger   *slog.Logger
	http     *http.Server
}

// Config configures the server.
type Config struct {
	Addr string
	// Personas available by name for API requests that reference
	// personas instead of embedding them.
	Personas map[string]persona.Persona
	Metrics  *metrics.Collector
	Logger   *slog.Logger
}

// New creates the server. Routes are registered immediately; Run starts
// listening.
func New(runner service.Runner, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8585"
	}

	s := &Server{
		runner:   runner,
		jobs:     service.NewJobManager(),
		personas: cfg.Personas,
		metrics:  cfg.Metrics,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/analyses", s.handleCreateAnalysis)
		r.Post("/focus-groups", s.handleCreateFocusGroup)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/jobs/{id}/ws", s.handleJobStream)
		r.Get("/stats", s.handleStats)
	})

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}
