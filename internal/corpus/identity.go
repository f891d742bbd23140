// Package corpus names corpora, reads them from files, and fetches conference corpora
// through a local cache.
package corpus

import (
	"strings"
	"unicode"
)

// Identity returns the stable key used to name every per-corpus artifact: the name
// lowercased with each whitespace rune replaced by '_'.
func Identity(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return unicode.ToLower(r)
	}, name)
}
