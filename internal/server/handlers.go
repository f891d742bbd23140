package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/catalog"
	"github.com/hyperjump/catalogger/internal/config"
	"github.com/hyperjump/catalogger/internal/corpus"
	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/recommend"
	"github.com/hyperjump/catalogger/internal/search"
	"github.com/hyperjump/catalogger/internal/storage"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidQuery),
		errors.Is(err, search.ErrInvalidTopK),
		errors.Is(err, catalog.ErrEmptyInterests):
		return http.StatusBadRequest
	case errors.Is(err, corpus.ErrUnknownConference),
		errors.Is(err, corpus.ErrEmptyFetch),
		errors.Is(err, storage.ErrCorpusNotFound),
		errors.Is(err, catalog.ErrNotLoaded):
		return http.StatusNotFound
	case errors.Is(err, search.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, catalog.ErrNoReranker), errors.Is(err, recommend.ErrNoAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, recommend.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func corpusParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("corpus", query.Corpus),
		zap.String("query", query.Query),
		zap.Int("top_k", query.TopK))
	resp, err := s.catalog.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Corpus == "" {
		s.respondError(w, http.StatusBadRequest, "corpus is required")
		return
	}
	resp, err := s.catalog.Recommend(r.Context(), &req)
	if err != nil {
		s.fail(w, "recommend failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleCorpusLoad starts a background load and returns its job. With ?refresh=true the
// corpus is downloaded again.
func (s *Server) handleCorpusLoad(w http.ResponseWriter, r *http.Request) {
	name := corpusParam(r)
	refresh := r.URL.Query().Get("refresh") == "true"
	job := s.jobs.Create(name)
	s.logger.Info("corpus load requested", zap.String("corpus", name), zap.String("job", job.ID), zap.Bool("refresh", refresh))

	go func() {
		progress := func(f float64, msg string) { s.jobs.Progress(job.ID, f, msg) }
		open := s.catalog.Open
		if refresh {
			open = s.catalog.Refresh
		}
		idx, err := open(s.baseCtx, name, progress)
		papers := 0
		if err != nil {
			s.logger.Error("corpus load failed", zap.String("corpus", name), zap.Error(err))
		} else {
			papers = idx.Corpus.Len()
			s.catalog.Release(idx)
		}
		s.jobs.Finish(job.ID, papers, err)
	}()

	s.respondJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	s.respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleCorpusDelete(w http.ResponseWriter, r *http.Request) {
	name := corpusParam(r)
	if err := s.catalog.Delete(r.Context(), name); err != nil {
		s.fail(w, "delete corpus failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"corpus": name, "status": "deleted"})
}

type corpusEntry struct {
	storage.CorpusInfo
	Loaded bool `json:"loaded"`
}

func (s *Server) handleCorporaList(w http.ResponseWriter, r *http.Request) {
	list, err := s.storage.ListCorpora(r.Context())
	if err != nil {
		s.fail(w, "list corpora failed", err)
		return
	}
	loaded := make(map[string]bool)
	for _, id := range s.catalog.Loaded() {
		loaded[id] = true
	}
	out := make([]corpusEntry, len(list))
	for i, info := range list {
		out[i] = corpusEntry{CorpusInfo: info, Loaded: loaded[info.Identity]}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"corpora": out})
}

func (s *Server) handleConferences(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"conferences": s.catalog.Provider().Conferences().Names(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corpora, err := s.storage.CountCorpora(ctx)
	if err != nil {
		s.fail(w, "status: count corpora failed", err)
		return
	}
	papers, err := s.storage.CountPapers(ctx)
	if err != nil {
		s.fail(w, "status: count papers failed", err)
		return
	}
	resp := map[string]interface{}{
		"corpora": corpora,
		"papers":  papers,
		"loaded":  s.catalog.Loaded(),
	}
	if s.config != nil {
		resp["config"] = map[string]interface{}{
			"embedding_provider":   s.config.Embedding.Provider,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"llm_provider":         s.config.LLM.Provider,
			"data_dir":             s.config.Storage.DataDir,
			"database_path":        s.config.Storage.DatabasePath,
			"keyword_index_dir":    s.config.Storage.KeywordIndexDir,
		}
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DataDir, s.config.Storage.DatabasePath, s.config.Storage.KeywordIndexDir)
		if err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Directories()})
}

type watchRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		s.respondError(w, http.StatusNotFound, "directory not found")
		return
	case err != nil:
		s.fail(w, "watch add directory failed", err)
		return
	case !info.IsDir():
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := req.Sync == nil || *req.Sync
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.fail(w, "watch add directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body watchRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.fail(w, "watch remove directory failed", err)
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
