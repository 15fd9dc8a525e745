// Package api serves chunk manifest reconstruction and the crawl ledger over HTTP.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chunkmap/internal/config"
	"chunkmap/internal/ledger"
	"chunkmap/internal/manifest"
	"chunkmap/internal/slogutil"
)

// Server represents the HTTP API server
type Server struct {
	router chi.Router
	server *http.Server
	cfg    config.ServerConfig
	logger *slog.Logger
	engine *manifest.Engine
	ledger *ledger.Ledger
}

// NewServer creates a server. led may be nil, in which case the run
// endpoints answer 404.
func NewServer(cfg config.ServerConfig, engine *manifest.Engine, led *ledger.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	if engine == nil {
		engine = manifest.NewEngine(logger)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		engine: engine,
		ledger: led,
	}
	s.applyMiddleware()
	s.registerRoutes()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.cfg.Addr, "auth", s.cfg.TokenHash != "")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	return nil
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// applyMiddleware installs middleware outermost first.
func (s *Server) applyMiddleware() {
	s.router.Use(CORSMiddleware())
	s.router.Use(RequestIDMiddleware())
	s.router.Use(middleware.RealIP)
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(RecoveryMiddleware(s.logger))
}

func (s *Server) registerRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.TokenHash))
		r.Post("/reconstruct", s.handleReconstruct)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/artifacts", s.handleRunArtifacts)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFound(w, "no route for "+r.Method+" "+r.URL.Path)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, ErrorResponse{
			Error: "method " + r.Method + " not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		}, http.StatusMethodNotAllowed)
	})
}
