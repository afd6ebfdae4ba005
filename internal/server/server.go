// Package server provides the HTTP API for Omoide.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/omoide/internal/config"
	"github.com/hyperjump/omoide/internal/search"
)

// Server is the HTTP server for the Omoide API.
type Server struct {
	engine *search.Engine
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *search.Engine, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
}

// Router builds the chi router. Exposed for handler tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/v1/texts", s.handleIngest)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/texts/{id}", s.handleGetText)
	r.Delete("/api/v1/texts/{id}", s.handleDeleteText)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
