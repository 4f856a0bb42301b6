package trends

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// NormalizeKeyword trims and width-folds a user-supplied keyword so that
// full-width and half-width spellings of the same term compare equal.
func NormalizeKeyword(s string) string {
	s = strings.TrimSpace(s)
	s = width.Fold.String(s)
	return norm.NFKC.String(s)
}

// NormalizeKeywords applies NormalizeKeyword to every entry, dropping
// empties, preserving order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if n := NormalizeKeyword(kw); n != "" {
			out = append(out, n)
		}
	}
	return out
}
