// Package sanitize strips markup from user-provided free text before it is
// stored next to lead data.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Text removes HTML tags, including tags hidden behind entity encoding,
// and trims surrounding whitespace.
func Text(s string) string {
	out := tagPattern.ReplaceAllString(s, "")
	out = html.UnescapeString(out)
	out = tagPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Optional sanitizes an optional field. Nil stays nil, and a value that is
// empty after sanitizing becomes nil.
func Optional(s *string) *string {
	if s == nil {
		return nil
	}
	out := Text(*s)
	if out == "" {
		return nil
	}
	return &out
}
