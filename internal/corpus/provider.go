package corpus

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/internal/storage"
)

// ErrEmptyFetch is returned when a remote fetch yields no papers.
var ErrEmptyFetch = errors.New("no papers found")

// Source labels recorded with cached corpora.
const (
	SourceOpenReview = "openreview"
	SourceImport     = "import"
)

// Fetcher retrieves the submissions posted to an invitation.
type Fetcher interface {
	Notes(ctx context.Context, invitation string) ([]models.Paper, error)
}

// Provider loads corpora from the local cache, fetching conference corpora on a miss.
type Provider struct {
	store       storage.Storage
	fetcher     Fetcher
	conferences Conferences
	logger      *zap.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a provider. fetcher may be nil, in which case only cached and
// imported corpora are available.
func NewProvider(store storage.Storage, fetcher Fetcher, conferences Conferences, opts ...ProviderOption) *Provider {
	p := &Provider{
		store:       store,
		fetcher:     fetcher,
		conferences: conferences,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Conferences returns the catalog the provider fetches from.
func (p *Provider) Conferences() Conferences { return p.conferences }

// Load returns the corpus called name. A cached copy wins; otherwise a known conference is
// fetched and cached.
func (p *Provider) Load(ctx context.Context, name string) (*models.Corpus, error) {
	id := Identity(name)
	c, err := p.store.LoadCorpus(ctx, id)
	if err == nil {
		p.logger.Debug("Loaded corpus from cache", zap.String("corpus", name), zap.Int("papers", c.Len()))
		return c, nil
	}
	if !errors.Is(err, storage.ErrCorpusNotFound) {
		return nil, fmt.Errorf("load cached corpus %s: %w", name, err)
	}
	return p.Fetch(ctx, name)
}

// Fetch downloads a conference corpus and replaces any cached copy.
func (p *Provider) Fetch(ctx context.Context, name string) (*models.Corpus, error) {
	if conf, ok := p.conferences.ByIdentity(Identity(name)); ok {
		name = conf
	}
	inv, err := p.conferences.Invitation(name)
	if err != nil {
		return nil, err
	}
	if p.fetcher == nil {
		return nil, fmt.Errorf("fetch %s: no remote source configured", name)
	}

	p.logger.Info("Fetching corpus", zap.String("corpus", name), zap.String("invitation", inv))
	papers, err := p.fetcher.Notes(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	if len(papers) == 0 {
		return nil, fmt.Errorf("%w for %s with invitation %s", ErrEmptyFetch, name, inv)
	}
	c := &models.Corpus{Name: name, Papers: papers}
	if err := p.store.SaveCorpus(ctx, Identity(name), SourceOpenReview, c); err != nil {
		return nil, fmt.Errorf("cache corpus %s: %w", name, err)
	}
	p.logger.Info("Cached corpus", zap.String("corpus", name), zap.Int("papers", len(papers)))
	return c, nil
}

// Import reads a corpus file and caches it under the file stem.
func (p *Provider) Import(ctx context.Context, path string) (*models.Corpus, error) {
	c, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveCorpus(ctx, Identity(c.Name), SourceImport, c); err != nil {
		return nil, fmt.Errorf("cache corpus %s: %w", c.Name, err)
	}
	p.logger.Info("Imported corpus", zap.String("corpus", c.Name), zap.String("path", path), zap.Int("papers", c.Len()))
	return c, nil
}

// Cached returns the paper count of every cached corpus, keyed by display name.
func (p *Provider) Cached(ctx context.Context) (map[string]int, error) {
	list, err := p.store.ListCorpora(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(list))
	for _, info := range list {
		out[info.Name] = info.Papers
	}
	return out, nil
}

// Remove drops a cached corpus.
func (p *Provider) Remove(ctx context.Context, name string) error {
	return p.store.DeleteCorpus(ctx, Identity(name))
}
