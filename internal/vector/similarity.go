package vector

import (
	"fmt"
	"math"
)

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	return math.Sqrt(Dot(x, x))
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1]. A zero
// vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	na, nb := L2Norm(a), L2Norm(b)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return clampCosine(Dot(a, b) / (na * nb)), nil
}

// clampCosine absorbs float rounding that pushes a cosine just outside [-1, 1].
func clampCosine(c float64) float64 {
	return math.Max(-1, math.Min(1, c))
}
