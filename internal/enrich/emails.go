// Package enrich adds author contact details to recommendations: emails found on the
// first page of the paper's PDF, OpenReview profile emails, and a social search link.
package enrich

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
	// groupRe matches the "{alice, bob}@example.org" form common in paper headers.
	groupRe = regexp.MustCompile(`\{([^{}]+)\}@([A-Za-z0-9.-]+\.[A-Z|a-z]{2,})`)
)

// FindEmails returns the distinct email addresses in text, sorted.
func FindEmails(text string) []string {
	seen := make(map[string]bool)
	for _, e := range emailRe.FindAllString(text, -1) {
		seen[e] = true
	}
	for _, m := range groupRe.FindAllStringSubmatch(text, -1) {
		for _, user := range strings.Split(m[1], ",") {
			if user = strings.TrimSpace(user); user != "" {
				seen[user+"@"+m[2]] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// lastNameKey is the author's last name, lowercased, keeping letters and digits only.
func lastNameKey(name string) string {
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) == 0 {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, parts[len(parts)-1])
}

// MatchAuthorEmail returns the first email containing the author's last name, or "".
func MatchAuthorEmail(name string, emails []string) string {
	key := lastNameKey(name)
	if key == "" {
		return ""
	}
	for _, e := range emails {
		if strings.Contains(strings.ToLower(e), key) {
			return e
		}
	}
	return ""
}

// SocialSearchURL links to a web search for the author's X profile.
func SocialSearchURL(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(name+" researcher x.com")
}
