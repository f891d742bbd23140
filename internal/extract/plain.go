package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain replaces invalid UTF-8 with the replacement character and strips a BOM.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return strings.TrimPrefix(s, "\ufeff"), nil
}
