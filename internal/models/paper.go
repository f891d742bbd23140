// Package models defines core data structures for papers, corpora, queries, and recommendations.
package models

import (
	"strings"

	"github.com/hyperjump/catalogger/pkg/utils"
)

// Paper is one row of a corpus. Every field is present; an absent value is the empty string.
type Paper struct {
	ID       string `json:"id" db:"id"`
	Title    string `json:"title" db:"title"`
	Abstract string `json:"abstract" db:"abstract"`
	// Authors and Keywords are comma-separated, as delivered by corpus providers.
	Authors   string `json:"authors" db:"authors"`
	AuthorIDs string `json:"author_ids,omitempty" db:"author_ids"`
	Keywords  string `json:"keywords" db:"keywords"`
	PDFURL    string `json:"pdf_url" db:"pdf_url"`
}

// Text returns the text embedded for the paper: title and abstract joined by ". ".
func (p Paper) Text() string {
	return p.Title + ". " + p.Abstract
}

// AuthorList returns the individual author names.
func (p Paper) AuthorList() []string {
	return utils.SplitList(p.Authors)
}

// AuthorIDList returns the individual OpenReview author ids (profile ids or emails).
func (p Paper) AuthorIDList() []string {
	return utils.SplitList(p.AuthorIDs)
}

// KeywordList returns the individual keywords.
func (p Paper) KeywordList() []string {
	return utils.SplitList(p.Keywords)
}

// Corpus is an ordered set of papers for one conference edition. Row order is significant:
// row i of a corpus aligns with row i of its embedding matrix.
type Corpus struct {
	Name   string  `json:"name"`
	Papers []Paper `json:"papers"`
}

// Len returns the number of rows.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Papers)
}

// Texts returns the embedding text of every row, in row order.
func (c *Corpus) Texts() []string {
	texts := make([]string, c.Len())
	for i, p := range c.Papers {
		texts[i] = p.Text()
	}
	return texts
}

// JoinList is the inverse of SplitList, used when providers deliver lists.
func JoinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}
