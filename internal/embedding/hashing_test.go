package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	e := NewHashingEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Sim-to-real transfer for robots")
	b, _ := e.Embed(ctx, "Sim-to-real transfer for robots")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
	if n := math.Sqrt(dot(a, a)); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %v, want 1", n)
	}
}

func TestHashingEmbedder_SharedWordsAreSimilar(t *testing.T) {
	e := NewHashingEmbedder(384)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "deep learning models")
	a, _ := e.Embed(ctx, "Neural nets. deep learning")
	b, _ := e.Embed(ctx, "Cooking. recipes")
	if dot(q, a) <= dot(q, b) {
		t.Errorf("expected related text to score higher: %v <= %v", dot(q, a), dot(q, b))
	}
}

func TestHashingEmbedder_EmptyText(t *testing.T) {
	e := NewHashingEmbedder(16)
	v, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 16 || dot(v, v) != 0 {
		t.Errorf("empty text should embed to the zero vector, got %v", v)
	}
}

func TestHashingEmbedder_BatchCancelled(t *testing.T) {
	e := NewHashingEmbedder(16)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.EmbedBatch(ctx, []string{"a"})
	if !errors.Is(err, ErrEmbeddingFailure) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want ErrEmbeddingFailure wrapping context.Canceled", err)
	}
}

func TestCheckBatch(t *testing.T) {
	if err := CheckBatch([][]float32{{1, 2}}, 1, 2); err != nil {
		t.Errorf("valid batch: %v", err)
	}
	if err := CheckBatch([][]float32{{1, 2}}, 2, 2); !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("short batch: %v", err)
	}
	if err := CheckBatch([][]float32{{1}}, 1, 2); !errors.Is(err, ErrEmbeddingFailure) {
		t.Errorf("narrow vector: %v", err)
	}
}
