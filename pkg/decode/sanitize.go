package decode

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var stripPolicy = bluemonday.StrictPolicy()

// Clean normalizes free text coming out of upstream dumps and APIs.
// The order is fixed: strip markup, decode HTML entities (numeric and
// named), collapse whitespace. Decoding before stripping would let an
// encoded tag survive as live markup.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	// bluemonday re-escapes the text it keeps; one more pass settles
	// double-encoded entities like &amp;eacute;.
	s = html.UnescapeString(s)
	return CollapseWhitespace(s)
}

// CollapseWhitespace trims the string and folds every run of whitespace
// (including newlines and tabs) into a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
