package models

// Author is an author entry of a recommendation, optionally enriched with contact data.
type Author struct {
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	SocialURL string `json:"social_url,omitempty"`
}

// Recommendation is one curated paper returned by the re-ranker.
type Recommendation struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Authors    []Author `json:"authors"`
	Keywords   []string `json:"keywords"`
	Relevance  string   `json:"relevance"`
	Icebreaker string   `json:"icebreaker"`
	URL        string   `json:"url,omitempty"`
	// Row is the candidate corpus row the recommendation refers to, or -1.
	Row int `json:"row"`
}

// RecommendResponse carries the candidates shown to the re-ranker and its picks.
type RecommendResponse struct {
	Corpus          string           `json:"corpus"`
	Interests       string           `json:"interests"`
	Candidates      []ScoredPaper    `json:"candidates"`
	Recommendations []Recommendation `json:"recommendations"`
}
