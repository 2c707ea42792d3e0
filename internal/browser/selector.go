package browser

import (
	"strings"
	"unicode"
)

const hasTextMarker = `:has-text(`

// Selector is a parsed selector: plain CSS plus an optional text filter.
type Selector struct {
	CSS  string
	Text string
}

// ParseSelector splits `button:has-text("Submit")` into its CSS part and a
// lowercased text filter. A selector without the suffix is returned as-is.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	idx := strings.LastIndex(s, hasTextMarker)
	if idx < 0 || !strings.HasSuffix(s, ")") {
		return Selector{CSS: s}
	}
	arg := strings.TrimSpace(s[idx+len(hasTextMarker) : len(s)-1])
	arg = strings.Trim(arg, `"'`)
	css := strings.TrimSpace(s[:idx])
	if css == "" {
		css = "*"
	}
	return Selector{CSS: css, Text: NormalizeText(arg)}
}

// MatchesText reports whether candidate contains the filter text.
func (s Selector) MatchesText(candidate string) bool {
	if s.Text == "" {
		return true
	}
	return strings.Contains(NormalizeText(candidate), s.Text)
}

// NormalizeText lowercases s and collapses runs of whitespace.
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " "))
}
