// Package catalog keeps the loaded corpora of a running process and routes searches and
// recommendation requests to them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/config"
	"github.com/hyperjump/catalogger/internal/corpus"
	"github.com/hyperjump/catalogger/internal/indexer"
	"github.com/hyperjump/catalogger/internal/keyword"
	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/recommend"
	"github.com/hyperjump/catalogger/internal/search"
	"github.com/hyperjump/catalogger/internal/vector"
)

var (
	// ErrNotLoaded is returned by Get for a corpus that has not been opened.
	ErrNotLoaded = errors.New("corpus not loaded")
	// ErrNoReranker is returned by Recommend when no LLM is configured.
	ErrNoReranker = errors.New("no LLM re-ranker configured")
	// ErrEmptyInterests is returned by Recommend for a blank interests statement.
	ErrEmptyInterests = errors.New("interests cannot be empty")
)

// Enricher adds author contact details to recommendations.
type Enricher interface {
	Enrich(ctx context.Context, recs []models.Recommendation, corpus *models.Corpus) []models.Recommendation
}

// ProgressFunc receives build progress as a fraction in [0, 1] and a status line.
type ProgressFunc func(fraction float64, message string)

// Catalog owns the in-memory indexes. It is safe for concurrent use; concurrent opens of the
// same corpus share one build.
type Catalog struct {
	provider   *corpus.Provider
	pipeline   *indexer.Pipeline
	store      vector.Store
	engine     *search.Engine
	reranker   recommend.Reranker
	enricher   Enricher
	searchCfg  config.SearchConfig
	maxCands   int
	keywordDir string
	logger     *zap.Logger

	gate    indexer.Gate
	mu      sync.RWMutex
	indexes map[string]*search.Index
	// shared holds every keyword index still open, published or retired, by directory.
	shared map[string]*keyword.Shared
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithReranker enables Recommend.
func WithReranker(r recommend.Reranker) Option {
	return func(c *Catalog) { c.reranker = r }
}

// WithEnricher enables author enrichment on requests that ask for it.
func WithEnricher(e Enricher) Option {
	return func(c *Catalog) { c.enricher = e }
}

// WithKeywordDir stores one keyword index per corpus under dir. Without it, keyword and
// hybrid searches are unavailable.
func WithKeywordDir(dir string) Option {
	return func(c *Catalog) { c.keywordDir = dir }
}

// WithSearchConfig sets the top_k defaults applied to queries.
func WithSearchConfig(cfg config.SearchConfig) Option {
	return func(c *Catalog) { c.searchCfg = cfg }
}

// WithMaxCandidates sets how many search results Recommend shows the re-ranker by default.
func WithMaxCandidates(n int) Option {
	return func(c *Catalog) {
		if n > 0 {
			c.maxCands = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New creates a catalog. store must be the store pipeline persists to.
func New(provider *corpus.Provider, pipeline *indexer.Pipeline, store vector.Store, engine *search.Engine, opts ...Option) *Catalog {
	c := &Catalog{
		provider:  provider,
		pipeline:  pipeline,
		store:     store,
		engine:    engine,
		searchCfg: config.Default().Search,
		maxCands:  50,
		logger:    zap.NewNop(),
		indexes:   make(map[string]*search.Index),
		shared:    make(map[string]*keyword.Shared),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the corpus provider.
func (c *Catalog) Provider() *corpus.Provider { return c.provider }

// Open loads the corpus called name, fetching it if needed, and makes it searchable. A
// corpus that is already open is returned as is. progress may be nil; only the caller that
// starts a shared build receives progress.
//
// Concurrent callers for one corpus share a single build. The build is cancelled only when
// every one of them has given up, so cancelling ctx never fails another caller's Open.
//
// The returned index is held until it is passed to Release.
func (c *Catalog) Open(ctx context.Context, name string, progress ProgressFunc) (*search.Index, error) {
	if idx, err := c.Get(name); err == nil {
		return idx, nil
	}
	corp, err := c.provider.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.install(ctx, corp, progress, true)
}

// Refresh downloads the corpus again and rebuilds its index. The returned index is held
// until it is passed to Release.
func (c *Catalog) Refresh(ctx context.Context, name string, progress ProgressFunc) (*search.Index, error) {
	corp, err := c.provider.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.install(ctx, corp, progress, false)
}

// Import reads a corpus file, caches it, and (re)builds its index. The returned index is
// held until it is passed to Release.
func (c *Catalog) Import(ctx context.Context, path string, progress ProgressFunc) (*search.Index, error) {
	corp, err := c.provider.Import(ctx, path)
	if err != nil {
		return nil, err
	}
	return c.install(ctx, corp, progress, false)
}

// install builds or loads the matrix and keyword index for corp and publishes the result.
// With reuse set, an index published by an earlier caller is kept as is.
func (c *Catalog) install(ctx context.Context, corp *models.Corpus, progress ProgressFunc, reuse bool) (*search.Index, error) {
	id := corpus.Identity(corp.Name)
	_, shared, err := c.gate.Do(ctx, id, func(buildCtx context.Context) (*vector.Matrix, error) {
		if reuse {
			if idx := c.lookup(id); idx != nil {
				return idx.Matrix, nil
			}
		}
		run := c.pipeline.Start(buildCtx, corp, id)
		for ev := range run.Events() {
			if progress != nil {
				progress(ev.Fraction, ev.Message)
			}
		}
		m, err := run.Result()
		if err != nil {
			return nil, err
		}
		if run.Cached() {
			c.logger.Debug("Loaded cached artifact", zap.String("corpus", id))
		}
		idx := &search.Index{Identity: id, Corpus: corp, Matrix: m}
		if c.keywordDir != "" {
			kw, err := c.openKeyword(buildCtx, id, corp.Papers)
			if err != nil {
				c.logger.Warn("Keyword index unavailable", zap.String("corpus", id), zap.Error(err))
			} else {
				idx.Keyword = kw
			}
		}
		c.publish(idx)
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", corp.Name, err)
	}
	if shared {
		c.logger.Debug("Joined in-flight build", zap.String("corpus", id))
	}
	return c.Get(corp.Name)
}

// openKeyword returns the keyword index for papers. Each distinct set of indexed fields
// lives in its own directory, so a replacement never shares files with an index that
// readers still hold. An index that is already open for the same fields is reused.
func (c *Catalog) openKeyword(ctx context.Context, identity string, papers []models.Paper) (*keyword.Shared, error) {
	path := c.keywordPath(identity, keyword.Fingerprint(papers))
	c.mu.Lock()
	if s, ok := c.shared[path]; ok && s.Revive() {
		c.mu.Unlock()
		return s, nil
	}
	delete(c.shared, path)
	c.mu.Unlock()

	idx, err := keyword.Open(ctx, path, papers)
	if err != nil {
		return nil, err
	}
	s := keyword.NewShared(idx, path)
	c.mu.Lock()
	c.shared[path] = s
	c.mu.Unlock()
	return s, nil
}

func (c *Catalog) publish(idx *search.Index) {
	c.mu.Lock()
	old := c.indexes[idx.Identity]
	c.indexes[idx.Identity] = idx
	for path, s := range c.shared {
		if s.Closed() {
			delete(c.shared, path)
		}
	}
	c.mu.Unlock()
	if old != nil && old.Keyword != nil && old.Keyword != idx.Keyword {
		c.retireKeyword(old)
	}
	c.pruneKeyword(idx.Identity)
	c.logger.Info("Corpus ready",
		zap.String("corpus", idx.Identity),
		zap.Int("papers", idx.Corpus.Len()),
		zap.Bool("keyword", idx.Keyword != nil))
}

// retireKeyword closes the keyword index of idx once its last holder releases it.
func (c *Catalog) retireKeyword(idx *search.Index) {
	if idx == nil || idx.Keyword == nil {
		return
	}
	if err := idx.Keyword.Close(); err != nil {
		c.logger.Warn("Failed to close keyword index", zap.String("corpus", idx.Identity), zap.Error(err))
	}
}

// pruneKeyword removes the keyword index directories of identity that no open index uses,
// such as generations left behind by an earlier process.
func (c *Catalog) pruneKeyword(identity string) {
	if c.keywordDir == "" {
		return
	}
	dir := filepath.Join(c.keywordDir, identity)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	c.mu.RLock()
	var stale []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if s, ok := c.shared[path]; ok && !s.Closed() {
			continue
		}
		stale = append(stale, path)
	}
	c.mu.RUnlock()
	for _, path := range stale {
		if err := keyword.Remove(path); err != nil {
			c.logger.Warn("Failed to remove stale keyword index", zap.String("path", path), zap.Error(err))
		}
	}
}

func (c *Catalog) keywordPath(identity, fingerprint string) string {
	return filepath.Join(c.keywordDir, identity, fingerprint[:16]+".bleve")
}

// Get returns the open index for name. The index is held until it is passed to Release:
// until then its keyword index stays usable even if the corpus is re-imported or
// forgotten.
func (c *Catalog) Get(name string) (*search.Index, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indexes[corpus.Identity(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if s, ok := idx.Keyword.(*keyword.Shared); ok {
		s.Acquire()
	}
	return idx, nil
}

// Release gives back an index returned by Get, Open, Refresh, or Import. A nil index is
// ignored.
func (c *Catalog) Release(idx *search.Index) {
	if idx == nil {
		return
	}
	if s, ok := idx.Keyword.(*keyword.Shared); ok {
		if err := s.Release(); err != nil {
			c.logger.Warn("Failed to close keyword index", zap.String("corpus", idx.Identity), zap.Error(err))
		}
	}
}

// lookup returns the published index for identity without holding it.
func (c *Catalog) lookup(identity string) *search.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes[identity]
}

// Loaded returns the identities of the open corpora, sorted.
func (c *Catalog) Loaded() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.indexes))
	for id := range c.indexes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Search validates q, opening its corpus on first use, and runs it.
func (c *Catalog) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if err := q.Validate(c.searchCfg.DefaultTopK, c.searchCfg.MaxTopK); err != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrInvalidQuery, err)
	}
	idx, err := c.Open(ctx, q.Corpus, nil)
	if err != nil {
		return nil, err
	}
	defer c.Release(idx)
	return c.engine.Run(ctx, idx, q)
}

// Recommend retrieves the top candidates for the interests statement, asks the re-ranker
// to pick from them, and merges the picks after any previous ones.
func (c *Catalog) Recommend(ctx context.Context, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	interests := req.Interests
	for _, kw := range req.Extend {
		interests = recommend.ExtendInterests(interests, kw)
	}
	if strings.TrimSpace(interests) == "" {
		return nil, ErrEmptyInterests
	}
	if req.TopK < 0 {
		return nil, fmt.Errorf("%w: %d", search.ErrInvalidTopK, req.TopK)
	}
	if c.reranker == nil {
		return nil, ErrNoReranker
	}
	idx, err := c.Open(ctx, req.Corpus, nil)
	if err != nil {
		return nil, err
	}
	defer c.Release(idx)
	k := req.TopK
	if k == 0 {
		k = c.maxCands
	}
	candidates, err := c.engine.Search(ctx, idx, interests, k)
	if err != nil {
		return nil, err
	}
	recs, err := c.reranker.Rerank(ctx, interests, candidates)
	if err != nil {
		return nil, err
	}
	if req.Enrich && c.enricher != nil {
		recs = c.enricher.Enrich(ctx, recs, idx.Corpus)
	}
	c.logger.Info("Recommendations ready",
		zap.String("corpus", idx.Identity),
		zap.Int("candidates", len(candidates)),
		zap.Int("picked", len(recs)),
		zap.Int("previous", len(req.Previous)))
	return &models.RecommendResponse{
		Corpus:          idx.Corpus.Name,
		Interests:       interests,
		Candidates:      candidates,
		Recommendations: recommend.Merge(req.Previous, recs),
	}, nil
}

// Forget unloads name and deletes its embedding artifact and keyword index. The cached
// corpus is kept, so the next Open rebuilds from it. Holders of the index keep a working
// keyword index until they release it.
func (c *Catalog) Forget(name string) error {
	id := corpus.Identity(name)
	c.mu.Lock()
	idx := c.indexes[id]
	delete(c.indexes, id)
	c.mu.Unlock()
	c.retireKeyword(idx)

	if err := c.store.Remove(id); err != nil {
		return err
	}
	if c.keywordDir != "" {
		c.pruneKeyword(id)
		// Fails while a held generation remains; that generation removes itself on release.
		_ = os.Remove(filepath.Join(c.keywordDir, id))
	}
	c.logger.Info("Forgot corpus", zap.String("corpus", id))
	return nil
}

// Delete forgets name and drops its cached corpus.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	if err := c.Forget(name); err != nil {
		return err
	}
	return c.provider.Remove(ctx, name)
}

// Close closes every keyword index, held or not, and keeps them on disk for the next
// process.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for path, s := range c.shared {
		if err := s.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", path, err))
		}
		delete(c.shared, path)
	}
	clear(c.indexes)
	return errors.Join(errs...)
}
