// Package storage defines the persistence interface for cached corpora.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/catalogger/internal/models"
)

// ErrCorpusNotFound is returned when no corpus is cached under an identity.
var ErrCorpusNotFound = errors.New("corpus not found")

// CorpusInfo summarizes one cached corpus.
type CorpusInfo struct {
	Identity  string    `json:"identity"`
	Name      string    `json:"name"`
	Papers    int       `json:"papers"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage persists corpora keyed by identity. Rows are stored and returned in corpus order.
type Storage interface {
	// SaveCorpus replaces any corpus stored under identity.
	SaveCorpus(ctx context.Context, identity, source string, corpus *models.Corpus) error
	LoadCorpus(ctx context.Context, identity string) (*models.Corpus, error)
	DeleteCorpus(ctx context.Context, identity string) error
	ListCorpora(ctx context.Context) ([]CorpusInfo, error)

	// Stats
	CountCorpora(ctx context.Context) (int64, error)
	CountPapers(ctx context.Context) (int64, error)

	Close() error
}
