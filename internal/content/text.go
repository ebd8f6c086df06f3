package content

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ugcPolicy   = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// Sanitize strips unsafe markup from post content.
func Sanitize(s string) string {
	return ugcPolicy.Sanitize(s)
}

// Slugify lowercases s and collapses every run of non-alphanumeric runes
// into a single "-". Leading and trailing dashes are trimmed.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// Excerpt returns the first n characters of the text content of an HTML
// fragment, followed by "..." when it was cut.
func Excerpt(htmlContent string, n int) string {
	text := html.UnescapeString(plainPolicy.Sanitize(htmlContent))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:n])) + "..."
}
