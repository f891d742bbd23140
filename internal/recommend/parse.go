package recommend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/catalogger/internal/models"
)

// ErrMalformedResponse is returned when the model's answer is not a JSON array of picks.
var ErrMalformedResponse = errors.New("malformed model response")

// flexID accepts a JSON number or string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// flexAuthor accepts {"name": "..."} or a bare string.
type flexAuthor struct {
	Name string `json:"name"`
}

func (a *flexAuthor) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		a.Name = strings.TrimSpace(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	a.Name = strings.TrimSpace(obj.Name)
	return nil
}

type pick struct {
	ID         flexID       `json:"id"`
	Title      string       `json:"title"`
	Authors    []flexAuthor `json:"authors"`
	Keywords   []string     `json:"keywords"`
	Relevance  string       `json:"relevance"`
	Icebreaker string       `json:"icebreaker"`
}

// StripFences removes a surrounding markdown code fence, with or without a language tag.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// extractArray returns the outermost JSON array in text, tolerating prose around it.
func extractArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	end := strings.LastIndexByte(text, ']')
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseRecommendations decodes the model's answer. Picks whose id names a candidate row
// get that paper's PDF link and canonical title; others keep Row -1.
func ParseRecommendations(text string, candidates []models.ScoredPaper) ([]models.Recommendation, error) {
	body, ok := extractArray(StripFences(text))
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in %q", ErrMalformedResponse, truncate(text, 120))
	}
	var picks []pick
	if err := json.Unmarshal([]byte(body), &picks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	byRow := make(map[int]models.ScoredPaper, len(candidates))
	for _, c := range candidates {
		byRow[c.Row] = c
	}

	out := make([]models.Recommendation, 0, len(picks))
	for _, p := range picks {
		rec := models.Recommendation{
			ID:         string(p.ID),
			Title:      strings.TrimSpace(p.Title),
			Keywords:   p.Keywords,
			Relevance:  strings.TrimSpace(p.Relevance),
			Icebreaker: strings.TrimSpace(p.Icebreaker),
			Row:        -1,
		}
		if rec.Keywords == nil {
			rec.Keywords = []string{}
		}
		for _, a := range p.Authors {
			if a.Name != "" {
				rec.Authors = append(rec.Authors, models.Author{Name: a.Name})
			}
		}
		if row, err := strconv.Atoi(rec.ID); err == nil {
			if c, ok := byRow[row]; ok {
				rec.Row = row
				rec.URL = c.PDFURL
				if rec.Title == "" {
					rec.Title = c.Title
				}
				if len(rec.Authors) == 0 {
					for _, name := range c.AuthorList() {
						rec.Authors = append(rec.Authors, models.Author{Name: name})
					}
				}
			}
		}
		if rec.Authors == nil {
			rec.Authors = []models.Author{}
		}
		out = append(out, rec)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
