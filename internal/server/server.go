// Package server provides the HTTP API for Catalogger.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/catalog"
	"github.com/hyperjump/catalogger/internal/config"
	"github.com/hyperjump/catalogger/internal/storage"
)

// WatchService manages the import directories (implemented by watcher.Watcher).
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the Catalogger API.
type Server struct {
	catalog *catalog.Catalog
	storage storage.Storage
	jobs    *Jobs
	logger  *zap.Logger
	server  *http.Server

	// Background loads outlive their request and stop with the server.
	baseCtx context.Context
	cancel  context.CancelFunc

	watch      WatchService
	configPath string
	configMu   sync.Mutex
	config     *config.Config
}

// NewServer creates a server. watch may be nil; configPath, when set, receives watch
// directory changes.
func NewServer(
	cat *catalog.Catalog,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		catalog:    cat,
		storage:    store,
		jobs:       NewJobs(DefaultJobRetention),
		logger:     logger,
		baseCtx:    ctx,
		cancel:     cancel,
		watch:      watch,
		configPath: configPath,
		config:     cfg,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/conferences", s.handleConferences)
		r.Get("/corpora", s.handleCorporaList)
		r.Post("/corpora/{name}/load", s.handleCorpusLoad)
		r.Delete("/corpora/{name}", s.handleCorpusDelete)
		r.Get("/jobs/{id}", s.handleJob)
		r.Post("/search", s.handleSearch)
		r.Post("/recommend", s.handleRecommend)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop cancels background loads and gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
