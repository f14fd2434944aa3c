// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/asanoha/kotae/internal/config"
	"github.com/asanoha/kotae/internal/qa"
	"github.com/asanoha/kotae/internal/storage"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	engine  *qa.Engine
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *qa.Engine,
	storage storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:  engine,
		storage: storage,
		config:  cfg,
		logger:  logger,
	}
}

// Router builds the chi router with all API routes. Exposed separately from
// Start so tests can drive the handlers through httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/reindex", s.handleReindex)

	r.Post("/api/v1/documents", s.handleCreateDocument)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Put("/api/v1/documents/{id}", s.handleUpdateDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)

	r.Get("/api/v1/answers", s.handleListAnswers)
	r.Get("/api/v1/answers/{id}", s.handleGetAnswer)

	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
