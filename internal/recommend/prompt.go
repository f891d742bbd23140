// Package recommend asks a chat model to pick the most relevant papers among search
// candidates and turns its answer into recommendations.
package recommend

import (
	"fmt"
	"strings"

	"github.com/hyperjump/catalogger/internal/models"
)

const systemPrompt = "You are a helpful research assistant."

// BuildPrompt renders the re-ranking prompt. Each candidate is identified by its corpus row
// so the answer can be mapped back to the paper.
func BuildPrompt(interests string, candidates []models.ScoredPaper) string {
	var papers strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&papers, "ID: %d\nTitle: %s\nAbstract: %s\nAuthors: %s\n\n", c.Row, c.Title, c.Abstract, c.Authors)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert research assistant. The user is interested in: %q.\n\n", interests)
	fmt.Fprintf(&b, "Here are the top %d most relevant papers I found based on semantic search:\n\n", len(candidates))
	b.WriteString(papers.String())
	b.WriteString(`Please select the top 3-5 papers that are MOST relevant to the user's specific interest.

For each paper, return a JSON object with the following fields:
- "id": The ID of the paper provided in the context.
- "title": The exact title of the paper.
- "authors": A list of objects, where each object has:
    - "name": Author name.
- "keywords": A list of 3-5 relevant keywords/tags for this paper.
- "relevance": A 1-2 sentence explanation of why this paper is relevant to the user.
- "icebreaker": A specific question the user could ask one of the authors.

Return ONLY a valid JSON array of these objects. Do not include markdown formatting like ` + "```json ... ```" + `.
`)
	return b.String()
}
