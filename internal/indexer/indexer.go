// Package indexer turns a corpus into its embedding matrix, reusing a persisted artifact
// when the corpus is unchanged and computing and persisting one otherwise.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/embedding"
	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/vector"
)

// DefaultBatchSize is the number of records embedded per model call.
const DefaultBatchSize = 32

// CachedMessage is the progress message reported when a persisted artifact is reused.
const CachedMessage = "Loaded cached embeddings!"

// ErrAbandoned is returned by Run.Result when the consumer stopped pulling events before
// the build finished. Nothing is persisted in that case.
var ErrAbandoned = errors.New("build abandoned before completion")

// Progress is one progress report. Fraction is non-decreasing within a run and the final
// report of a successful run has Fraction 1.
type Progress struct {
	Fraction float64 `json:"fraction"`
	Message  string  `json:"message"`
}

// Pipeline builds embedding matrices for corpora.
type Pipeline struct {
	embedder  embedding.Embedder
	store     vector.Store
	batchSize int
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for build events (cache hits, stale artifacts, saves).
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithDefaultBatchSize sets the batch size used when a build does not override it.
func WithDefaultBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// NewPipeline creates a pipeline that embeds with embedder and persists through store.
func NewPipeline(embedder embedding.Embedder, store vector.Store, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type buildOptions struct {
	batchSize int
	progress  func(fraction float64, message string)
}

// BuildOption configures a single build.
type BuildOption func(*buildOptions)

// WithBatchSize overrides the batch size for one build. Values below 1 are ignored.
func WithBatchSize(n int) BuildOption {
	return func(o *buildOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithProgress registers a callback that Build invokes for every progress report.
func WithProgress(fn func(fraction float64, message string)) BuildOption {
	return func(o *buildOptions) { o.progress = fn }
}

// Run is a single build in progress. Work happens only while Events is being consumed:
// each pulled event corresponds to one embedded batch.
type Run struct {
	p        *Pipeline
	ctx      context.Context
	corpus   *models.Corpus
	identity string
	opts     buildOptions

	started bool
	done    bool
	cached  bool
	matrix  *vector.Matrix
	err     error
}

// Start prepares a build of corpus under identity. No work happens until Events is ranged.
func (p *Pipeline) Start(ctx context.Context, corpus *models.Corpus, identity string, opts ...BuildOption) *Run {
	o := buildOptions{batchSize: p.batchSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &Run{p: p, ctx: ctx, corpus: corpus, identity: identity, opts: o}
}

// Events returns the progress sequence of the run. The sequence can be ranged once.
func (r *Run) Events() iter.Seq[Progress] {
	return func(yield func(Progress) bool) {
		if r.started {
			return
		}
		r.started = true
		r.err = r.run(yield)
		r.done = true
	}
}

// Result returns the matrix once Events has been drained.
func (r *Run) Result() (*vector.Matrix, error) {
	if !r.done {
		return nil, errors.New("build has not finished; drain Events first")
	}
	return r.matrix, r.err
}

// Cached reports whether the result was loaded from a persisted artifact.
func (r *Run) Cached() bool { return r.cached }

func (r *Run) run(yield func(Progress) bool) error {
	if r.corpus == nil {
		return errors.New("corpus is required")
	}
	log := r.p.logger.With(zap.String("corpus", r.identity))
	texts := r.corpus.Texts()
	fp := vector.FingerprintTexts(texts)

	if m, ok, err := r.loadCached(log, len(texts), fp); err != nil {
		return err
	} else if ok {
		r.matrix, r.cached = m, true
		yield(Progress{Fraction: 1, Message: CachedMessage})
		return nil
	}

	start := time.Now()
	n, bs, dim := len(texts), r.opts.batchSize, r.p.embedder.Dimensions()
	log.Info("Building embeddings", zap.Int("papers", n), zap.Int("batch_size", bs), zap.Int("dimensions", dim))

	data := make([]float32, 0, n*dim)
	for i := 0; i < n; i += bs {
		if err := r.ctx.Err(); err != nil {
			return fmt.Errorf("build %s: %w", r.identity, err)
		}
		end := min(i+bs, n)
		vecs, err := r.p.embedder.EmbedBatch(r.ctx, texts[i:end])
		if err != nil {
			return fmt.Errorf("embed papers %d-%d: %w", i+1, end, err)
		}
		if err := embedding.CheckBatch(vecs, end-i, dim); err != nil {
			return fmt.Errorf("embed papers %d-%d: %w", i+1, end, err)
		}
		for _, v := range vecs {
			data = append(data, v...)
		}
		ev := Progress{
			Fraction: min(float64(i+bs)/float64(n), 1),
			Message:  fmt.Sprintf("Indexing paper %d-%d/%d...", i+1, end, n),
		}
		if !yield(ev) {
			log.Warn("Build abandoned", zap.Int("embedded", end))
			return ErrAbandoned
		}
	}

	m, err := vector.NewMatrix(n, dim, data)
	if err != nil {
		return err
	}
	if err := r.p.store.Save(r.identity, &vector.Artifact{Matrix: m, Fingerprint: fp}); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}
	log.Info("Saved embeddings",
		zap.String("path", r.p.store.Path(r.identity)),
		zap.Int("rows", n),
		zap.Duration("elapsed", time.Since(start)))
	r.matrix = m
	if n == 0 {
		yield(Progress{Fraction: 1, Message: "No papers to index"})
	}
	return nil
}

// loadCached returns the persisted matrix when it was built from exactly these texts with
// the current model width. Missing, corrupt, or stale artifacts are reported as a miss.
func (r *Run) loadCached(log *zap.Logger, rows int, fp vector.Fingerprint) (*vector.Matrix, bool, error) {
	a, err := r.p.store.Load(r.identity)
	switch {
	case errors.Is(err, vector.ErrNotFound):
		log.Debug("No cached embeddings")
		return nil, false, nil
	case errors.Is(err, vector.ErrCorruptArtifact):
		log.Warn("Corrupt embedding artifact, rebuilding", zap.Error(err))
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	m := a.Matrix
	if m.Rows() != rows || a.Fingerprint != fp || m.Cols() != r.p.embedder.Dimensions() {
		log.Warn("Stale embedding artifact, rebuilding",
			zap.Int("artifact_rows", m.Rows()),
			zap.Int("corpus_rows", rows),
			zap.Int("artifact_dimensions", m.Cols()),
			zap.Bool("fingerprint_match", a.Fingerprint == fp))
		return nil, false, nil
	}
	log.Info("Loaded cached embeddings", zap.Int("rows", rows))
	return m, true, nil
}

// Build runs a build to completion, forwarding progress to the WithProgress callback.
func (p *Pipeline) Build(ctx context.Context, corpus *models.Corpus, identity string, opts ...BuildOption) (*vector.Matrix, error) {
	run := p.Start(ctx, corpus, identity, opts...)
	for ev := range run.Events() {
		if run.opts.progress != nil {
			run.opts.progress(ev.Fraction, ev.Message)
		}
	}
	return run.Result()
}
