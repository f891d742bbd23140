package recommend

import (
	"strings"

	"github.com/hyperjump/catalogger/internal/models"
)

// Merge appends next to previous, skipping entries already present. Entries are matched by
// id, or by title when the id is empty; entries with neither are always kept.
func Merge(previous, next []models.Recommendation) []models.Recommendation {
	out := make([]models.Recommendation, 0, len(previous)+len(next))
	seen := make(map[string]bool, len(previous)+len(next))
	add := func(r models.Recommendation) {
		key := dedupeKey(r)
		if key != "" {
			if seen[key] {
				return
			}
			seen[key] = true
		}
		out = append(out, r)
	}
	for _, r := range previous {
		add(r)
	}
	for _, r := range next {
		add(r)
	}
	return out
}

func dedupeKey(r models.Recommendation) string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return "id:" + id
	}
	if t := strings.ToLower(strings.TrimSpace(r.Title)); t != "" {
		return "title:" + t
	}
	return ""
}

// ExtendInterests appends keyword to the interests text unless it already appears,
// separated by ", ".
func ExtendInterests(interests, keyword string) string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || strings.Contains(interests, keyword) {
		return interests
	}
	interests = strings.TrimSpace(interests)
	if interests == "" {
		return keyword
	}
	return interests + ", " + keyword
}
