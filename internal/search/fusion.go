package search

import (
	"sort"

	"github.com/hyperjump/catalogger/internal/keyword"
	"github.com/hyperjump/catalogger/pkg/utils"
)

// FusedResult holds a corpus row and its fused keyword/semantic scores.
type FusedResult struct {
	Row           int
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []keyword.Result) map[int]float64 {
	normalized := make(map[int]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.Row] = r.Score / maxScore
		} else {
			normalized[r.Row] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores clamps cosine similarities to [0,1]; dissimilar papers
// contribute nothing rather than a penalty.
func NormalizeSemanticScores(scores map[int]float64) map[int]float64 {
	normalized := make(map[int]float64, len(scores))
	for r, s := range scores {
		normalized[r] = utils.ClampUnit(s)
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights and returns results sorted by
// fused score, then row.
func Fuse(keywordScores, semanticScores map[int]float64, keywordWeight, semanticWeight float64) []FusedResult {
	scoreMap := make(map[int]*FusedResult, len(keywordScores)+len(semanticScores))
	for row, score := range keywordScores {
		scoreMap[row] = &FusedResult{Row: row, KeywordScore: score}
	}
	for row, score := range semanticScores {
		if result, exists := scoreMap[row]; exists {
			result.SemanticScore = score
		} else {
			scoreMap[row] = &FusedResult{Row: row, SemanticScore: score}
		}
	}
	results := make([]FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, *result)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Row < results[j].Row
	})
	return results
}
