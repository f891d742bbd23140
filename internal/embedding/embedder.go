// Package embedding maps text to fixed-dimension vectors through pluggable models.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmbeddingFailure wraps any failure of the underlying model. A failed batch is never
// partially recovered.
var ErrEmbeddingFailure = errors.New("embedding failure")

// Embedder produces vector embeddings for text. Dimensions is fixed for the lifetime of
// the embedder and every returned vector has exactly that many components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// failure wraps err as an ErrEmbeddingFailure with context.
func failure(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEmbeddingFailure, fmt.Sprintf(format, args...))
}

// interrupted wraps a context error as an ErrEmbeddingFailure that still matches
// context.Canceled and context.DeadlineExceeded.
func interrupted(model string, err error) error {
	return fmt.Errorf("%w: %s batch: %w", ErrEmbeddingFailure, model, err)
}

// CheckBatch verifies that a model returned one vector of width dim per input.
func CheckBatch(vectors [][]float32, want, dim int) error {
	if len(vectors) != want {
		return failure("model returned %d vectors for %d inputs", len(vectors), want)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return failure("vector %d has %d dimensions, expected %d", i, len(v), dim)
		}
	}
	return nil
}

// embedOne runs a single-text batch through EmbedBatch.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}
