package models

import "fmt"

// SearchMode selects how candidates are scored.
type SearchMode string

const (
	// ModeSemantic ranks by cosine similarity of embeddings only.
	ModeSemantic SearchMode = "semantic"
	// ModeKeyword ranks by BM25 over title, abstract, and keywords.
	ModeKeyword SearchMode = "keyword"
	// ModeHybrid fuses normalized keyword and semantic scores.
	ModeHybrid SearchMode = "hybrid"
)

// SearchQuery is a search request against one corpus.
type SearchQuery struct {
	Corpus string     `json:"corpus"`
	Query  string     `json:"query"`
	TopK   int        `json:"top_k,omitempty"`
	Mode   SearchMode `json:"mode,omitempty"`
}

// Validate checks required fields and fills defaults. defaultTopK applies when TopK is
// zero; maxTopK caps TopK when positive. A negative TopK is rejected.
func (q *SearchQuery) Validate(defaultTopK, maxTopK int) error {
	if q.Corpus == "" {
		return fmt.Errorf("corpus cannot be empty")
	}
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k must be >= 0, got %d", q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = defaultTopK
	}
	if maxTopK > 0 && q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	switch q.Mode {
	case "":
		q.Mode = ModeSemantic
	case ModeSemantic, ModeKeyword, ModeHybrid:
	default:
		return fmt.Errorf("unknown search mode %q", q.Mode)
	}
	return nil
}

// RecommendRequest asks for LLM-curated recommendations from the top candidates.
type RecommendRequest struct {
	Corpus    string `json:"corpus"`
	Interests string `json:"interests"`
	TopK      int    `json:"top_k,omitempty"`
	// Previous recommendations are kept and merged with the new ones ("generate more").
	Previous []Recommendation `json:"previous,omitempty"`
	Enrich   bool             `json:"enrich,omitempty"`
	// Extend lists keywords, usually taken from earlier recommendations, that are appended
	// to Interests before retrieval.
	Extend []string `json:"extend,omitempty"`
}
