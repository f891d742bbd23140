// Package keyword provides BM25 keyword search over the papers of a corpus.
package keyword

import (
	"context"

	"github.com/hyperjump/catalogger/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from title matches. Values <= 1 disable it.
	TitleBoost float64
	// FuzzyEnabled enables typo tolerance within Fuzziness edits (1 or 2, default 1).
	FuzzyEnabled bool
	Fuzziness    int
}

// KeywordIndex defines keyword search operations. Documents are corpus rows.
type KeywordIndex interface {
	IndexPapers(ctx context.Context, papers []models.Paper) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Result, error)
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	Row   int
	Score float64
}
