// Package cli formats Catalogger results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hyperjump/catalogger/internal/models"
	"github.com/hyperjump/catalogger/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat accepts text, compact, or json; anything else is an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
	}
}

// Percent renders a similarity score as a percentage.
func Percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes up to limit results (all when limit <= 0). JSON output always
// carries the full response.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat, limit int) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	results := response.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if format == OutputCompact {
		for i, r := range results {
			fmt.Fprintf(w, "%3d  %6s  %s\n", i+1, Percent(r.Score), r.Title)
		}
		return nil
	}

	fmt.Fprintf(w, "\nFound %d papers in %s for %q (%s, %dms)\n\n",
		response.Total, response.Corpus, response.Query, response.Mode, response.QueryTime)
	for i, r := range results {
		writeOnePaper(w, i+1, r)
	}
	if len(results) < len(response.Results) {
		fmt.Fprintf(w, "... %d more not shown\n", len(response.Results)-len(results))
	}
	return nil
}

func writeOnePaper(w io.Writer, rank int, r models.ScoredPaper) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "#%d  Match: %s", rank, Percent(r.Score))
	if r.KeywordScore != 0 || r.SemanticScore != 0 {
		fmt.Fprintf(w, " (keyword %.4f, semantic %.4f)", r.KeywordScore, r.SemanticScore)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Title: %s\n", r.Title)
	if r.Authors != "" {
		fmt.Fprintf(w, "Authors: %s\n", r.Authors)
	}
	if r.Keywords != "" {
		fmt.Fprintf(w, "Keywords: %s\n", r.Keywords)
	}
	if r.Abstract != "" {
		fmt.Fprintf(w, "\n%s\n", TruncateWords(r.Abstract, 60))
	}
	fmt.Fprintln(w)
}

// WriteRecommendations writes recommendation cards.
func WriteRecommendations(w io.Writer, response *models.RecommendResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if len(response.Recommendations) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return nil
	}
	for i, rec := range response.Recommendations {
		if format == OutputCompact {
			fmt.Fprintf(w, "%d. %s\n", i+1, rec.Title)
			continue
		}
		writeCard(w, i+1, rec)
	}
	return nil
}

func writeCard(w io.Writer, n int, rec models.Recommendation) {
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%d. %s\n", n, rec.Title)
	if rec.URL != "" {
		fmt.Fprintf(w, "   %s\n", rec.URL)
	}
	for _, a := range rec.Authors {
		line := "   - " + a.Name
		if a.Email != "" {
			line += " <" + a.Email + ">"
		}
		fmt.Fprintln(w, line)
		if a.SocialURL != "" {
			fmt.Fprintf(w, "     %s\n", a.SocialURL)
		}
	}
	if len(rec.Keywords) > 0 {
		fmt.Fprintf(w, "   Keywords: %s\n", strings.Join(rec.Keywords, ", "))
	}
	if rec.Relevance != "" {
		fmt.Fprintf(w, "\n   Why: %s\n", rec.Relevance)
	}
	if rec.Icebreaker != "" {
		fmt.Fprintf(w, "   Icebreaker: %q\n", rec.Icebreaker)
	}
	fmt.Fprintln(w)
}

// WriteCorpora lists cached corpora with their paper counts, sorted by name.
func WriteCorpora(w io.Writer, counts map[string]int, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, counts)
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) == 0 {
		fmt.Fprintln(w, "No cached corpora.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintf(w, "%-30s %6d papers\n", n, counts[n])
	}
	return nil
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText, 0)
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	return utils.Truncate(s, maxLen)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// ProgressPrinter returns a progress callback that rewrites one terminal line.
func ProgressPrinter(w io.Writer) func(fraction float64, message string) {
	return func(fraction float64, message string) {
		fmt.Fprintf(w, "\r[%3.0f%%] %-60s", fraction*100, message)
		if fraction >= 1 {
			fmt.Fprintln(w)
		}
	}
}
