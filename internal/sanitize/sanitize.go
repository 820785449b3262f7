package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips all HTML from user-supplied free text before it is persisted.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

const (
	MinUsernameLen = 3
	MaxUsernameLen = 20
)

// Username trims and validates an in-game username. The boolean is false
// when the trimmed value is outside the allowed length. Length is counted
// in runes, not bytes, so multibyte names are measured fairly.
func Username(s string) (string, bool) {
	trimmed := strings.TrimSpace(Text(s))
	if n := utf8.RuneCountInString(trimmed); n < MinUsernameLen || n > MaxUsernameLen {
		return trimmed, false
	}
	return trimmed, true
}
