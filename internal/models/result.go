package models

// ScoredPaper is a corpus row with its similarity to a query. Row is the position in the
// corpus the paper came from.
type ScoredPaper struct {
	Paper
	Row   int     `json:"row"`
	Score float64 `json:"similarity_score"`
	// KeywordScore and SemanticScore are set for hybrid results.
	KeywordScore  float64 `json:"keyword_score,omitempty"`
	SemanticScore float64 `json:"semantic_score,omitempty"`
}

// SearchResponse is the response for a search request. Results are in rank order.
type SearchResponse struct {
	Corpus    string        `json:"corpus"`
	Query     string        `json:"query"`
	Mode      SearchMode    `json:"mode"`
	Results   []ScoredPaper `json:"results"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
}
