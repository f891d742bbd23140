package vector

import (
	"math"
	"sort"
)

// Rank returns the indices of the k highest scores, best first. Equal scores keep
// ascending index order and NaN scores sort last, so the result is fully determined by
// the input. k is clamped to [0, len(scores)].
func Rank(scores []float64, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return []int{}
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return ranksBefore(scores, idx[a], idx[b])
	})
	return idx[:k:k]
}

func ranksBefore(scores []float64, i, j int) bool {
	a, b := scores[i], scores[j]
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN != bNaN:
		return bNaN
	case !aNaN && a != b:
		return a > b
	}
	return i < j
}
