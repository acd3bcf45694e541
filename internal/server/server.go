// Package server provides the HTTP API for Rirekisho.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/rirekisho/internal/config"
	"github.com/hyperjump/rirekisho/internal/ingest"
	"github.com/hyperjump/rirekisho/internal/pipeline"
	"github.com/hyperjump/rirekisho/internal/storage"
	"github.com/hyperjump/rirekisho/internal/vector"
)

// Server is the HTTP server for the Rirekisho API.
type Server struct {
	pipeline    *pipeline.Pipeline
	ingestor    *ingest.Ingestor
	storage     storage.Storage
	vectorIndex vector.VectorIndex
	config      *config.Config
	logger      *zap.Logger
	server      *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	p *pipeline.Pipeline,
	ing *ingest.Ingestor,
	store storage.Storage,
	vec vector.VectorIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:    p,
		ingestor:    ing,
		storage:     store,
		vectorIndex: vec,
		config:      cfg,
		logger:      logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/candidates", s.handleIngestCandidate)
	r.Get("/api/v1/candidates", s.handleListCandidates)
	r.Get("/api/v1/candidates/{id}", s.handleGetCandidate)
	r.Delete("/api/v1/candidates/{id}", s.handleDeleteCandidate)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
