package embedding

import (
	"context"

	"github.com/hyperjump/catalogger/pkg/utils"
)

// HashingEmbedder is a deterministic bag-of-words embedder. Each lowercase word is hashed
// into one of Dimensions buckets and the counts are L2-normalized, so texts that share
// words have positive cosine similarity and unrelated texts score near zero. It needs no
// model files and is used as the fallback model and in tests.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a hashing embedder with the given dimensions (384 if <= 0).
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the normalized bucket counts for text.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for _, word := range SplitWords(text) {
		emb[HashToken(word)%uint32(e.dimensions)]++
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text in order. It stops at the first cancelled context.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, interrupted("hashing", err)
		}
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *HashingEmbedder) Close() error {
	return nil
}
