// Package search ranks the papers of a loaded corpus against a free-text query by
// semantic similarity, keyword relevance, or a weighted fusion of both.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/embedding"
	"github.com/hyperjump/catalogger/internal/keyword"
	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/vector"
)

var (
	// ErrNotReady is returned when no matrix has been loaded for the corpus.
	ErrNotReady = errors.New("index not ready")
	// ErrInvalidTopK is returned for a negative top_k.
	ErrInvalidTopK = errors.New("top_k must not be negative")
	// ErrMisaligned is returned when the matrix row count differs from the corpus length.
	ErrMisaligned = errors.New("matrix rows do not match corpus length")
	// ErrInvalidQuery wraps query validation failures.
	ErrInvalidQuery = errors.New("invalid query")
)

// DefaultCandidatePool is the number of candidates each side contributes to hybrid fusion.
const DefaultCandidatePool = 200

// Index is a corpus together with its embedding matrix and, optionally, its keyword index.
type Index struct {
	Identity string
	Corpus   *models.Corpus
	Matrix   *vector.Matrix
	Keyword  keyword.KeywordIndex
}

// Engine runs queries against loaded indexes. It holds no per-corpus state and is safe for
// concurrent use.
type Engine struct {
	embedder       embedding.Embedder
	keywordWeight  float64
	semanticWeight float64
	candidatePool  int
	keywordOpts    *keyword.SearchOptions
	logger         *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithWeights sets the hybrid fusion weights.
func WithWeights(keywordWeight, semanticWeight float64) EngineOption {
	return func(e *Engine) {
		if keywordWeight >= 0 && semanticWeight >= 0 && keywordWeight+semanticWeight > 0 {
			e.keywordWeight, e.semanticWeight = keywordWeight, semanticWeight
		}
	}
}

// WithCandidatePool sets how many candidates each side contributes to hybrid fusion.
func WithCandidatePool(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.candidatePool = n
		}
	}
}

// WithKeywordOptions sets the options passed to keyword searches.
func WithKeywordOptions(opts *keyword.SearchOptions) EngineOption {
	return func(e *Engine) { e.keywordOpts = opts }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine that embeds queries with embedder.
func NewEngine(embedder embedding.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		embedder:       embedder,
		keywordWeight:  0.3,
		semanticWeight: 0.7,
		candidatePool:  DefaultCandidatePool,
		keywordOpts:    &keyword.SearchOptions{TitleBoost: 2},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// check validates the preconditions shared by every mode and returns the clamped k.
func check(idx *Index, topK int) (int, error) {
	if idx == nil || idx.Matrix == nil {
		return 0, ErrNotReady
	}
	if topK < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}
	if n := idx.Corpus.Len(); n != idx.Matrix.Rows() {
		return 0, fmt.Errorf("%w: %d rows, %d papers", ErrMisaligned, idx.Matrix.Rows(), n)
	}
	return min(topK, idx.Corpus.Len()), nil
}

// Search embeds query and returns the topK most similar papers by cosine similarity, best
// first. Equal scores are ordered by row. topK is clamped to the corpus size.
func (e *Engine) Search(ctx context.Context, idx *Index, query string, topK int) ([]models.ScoredPaper, error) {
	k, err := check(idx, topK)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return []models.ScoredPaper{}, nil
	}
	scores, err := e.semanticScores(ctx, idx, query)
	if err != nil {
		return nil, err
	}
	rows := vector.Rank(scores, k)
	out := make([]models.ScoredPaper, len(rows))
	for i, r := range rows {
		out[i] = models.ScoredPaper{Paper: idx.Corpus.Papers[r], Row: r, Score: scores[r], SemanticScore: scores[r]}
	}
	return out, nil
}

func (e *Engine) semanticScores(ctx context.Context, idx *Index, query string) ([]float64, error) {
	q, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	scores, err := idx.Matrix.Cosine(q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMisaligned, err)
	}
	return scores, nil
}

// Keyword returns the topK papers by BM25 relevance. It needs the index's keyword index.
func (e *Engine) Keyword(ctx context.Context, idx *Index, query string, topK int) ([]models.ScoredPaper, error) {
	k, err := check(idx, topK)
	if err != nil {
		return nil, err
	}
	if idx.Keyword == nil {
		return nil, fmt.Errorf("%w: no keyword index for %s", ErrNotReady, idx.Identity)
	}
	if k == 0 {
		return []models.ScoredPaper{}, nil
	}
	hits, err := idx.Keyword.Search(ctx, query, k, e.keywordOpts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	out := make([]models.ScoredPaper, 0, len(hits))
	for _, h := range hits {
		if h.Row < 0 || h.Row >= idx.Corpus.Len() {
			continue
		}
		out = append(out, models.ScoredPaper{Paper: idx.Corpus.Papers[h.Row], Row: h.Row, Score: h.Score, KeywordScore: h.Score})
	}
	return out, nil
}

// Hybrid fuses max-normalized keyword scores with cosine similarity using the engine's
// weights and returns the topK fused results.
func (e *Engine) Hybrid(ctx context.Context, idx *Index, query string, topK int) ([]models.ScoredPaper, error) {
	k, err := check(idx, topK)
	if err != nil {
		return nil, err
	}
	if idx.Keyword == nil {
		return nil, fmt.Errorf("%w: no keyword index for %s", ErrNotReady, idx.Identity)
	}
	if k == 0 {
		return []models.ScoredPaper{}, nil
	}
	pool := max(e.candidatePool, k)

	scores, err := e.semanticScores(ctx, idx, query)
	if err != nil {
		return nil, err
	}
	semantic := make(map[int]float64, pool)
	for _, r := range vector.Rank(scores, pool) {
		semantic[r] = scores[r]
	}
	hits, err := idx.Keyword.Search(ctx, query, pool, e.keywordOpts)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	keywordScores := NormalizeKeywordScores(hits)
	// Keyword-only candidates still carry their true semantic score.
	for r := range keywordScores {
		if _, ok := semantic[r]; !ok && r >= 0 && r < len(scores) {
			semantic[r] = scores[r]
		}
	}

	fused := Fuse(keywordScores, NormalizeSemanticScores(semantic), e.keywordWeight, e.semanticWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	out := make([]models.ScoredPaper, len(fused))
	for i, f := range fused {
		out[i] = models.ScoredPaper{
			Paper:         idx.Corpus.Papers[f.Row],
			Row:           f.Row,
			Score:         f.Score,
			KeywordScore:  f.KeywordScore,
			SemanticScore: f.SemanticScore,
		}
	}
	return out, nil
}

// Run executes a validated query in its mode and wraps the results in a response.
func (e *Engine) Run(ctx context.Context, idx *Index, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	var (
		results []models.ScoredPaper
		err     error
	)
	switch q.Mode {
	case models.ModeKeyword:
		results, err = e.Keyword(ctx, idx, q.Query, q.TopK)
	case models.ModeHybrid:
		results, err = e.Hybrid(ctx, idx, q.Query, q.TopK)
	default:
		results, err = e.Search(ctx, idx, q.Query, q.TopK)
	}
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	e.logger.Debug("Search completed",
		zap.String("corpus", idx.Identity),
		zap.String("mode", string(q.Mode)),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", elapsed))
	return &models.SearchResponse{
		Corpus:    q.Corpus,
		Query:     q.Query,
		Mode:      q.Mode,
		Results:   results,
		Total:     len(results),
		QueryTime: elapsed.Milliseconds(),
	}, nil
}
