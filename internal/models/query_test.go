package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name     string
		query    *SearchQuery
		wantErr  bool
		wantTopK int
		wantMode SearchMode
	}{
		{"empty query", &SearchQuery{Corpus: "c", Query: ""}, true, 0, ""},
		{"empty corpus", &SearchQuery{Query: "x"}, true, 0, ""},
		{"negative top_k", &SearchQuery{Corpus: "c", Query: "x", TopK: -1}, true, 0, ""},
		{"unknown mode", &SearchQuery{Corpus: "c", Query: "x", Mode: "fuzzy"}, true, 0, ""},
		{"sets default top_k", &SearchQuery{Corpus: "c", Query: "x"}, false, 50, ModeSemantic},
		{"caps top_k", &SearchQuery{Corpus: "c", Query: "x", TopK: 5000}, false, 500, ModeSemantic},
		{"keeps mode", &SearchQuery{Corpus: "c", Query: "x", TopK: 3, Mode: ModeHybrid}, false, 3, ModeHybrid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(50, 500)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.query.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.query.TopK, tt.wantTopK)
			}
			if tt.query.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", tt.query.Mode, tt.wantMode)
			}
		})
	}
}
