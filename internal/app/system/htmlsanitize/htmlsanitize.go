// Package htmlsanitize strips markup from user-supplied text before it is
// returned to API clients.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute.
var strict = bluemonday.StrictPolicy()

// PlainText returns s with all HTML removed and entities decoded, trimmed of
// surrounding whitespace. Text inside removed elements such as <script> is
// dropped along with the element.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no HTML tags.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}

// DisplayName returns PlainText(name), or fallback when nothing is left.
func DisplayName(name, fallback string) string {
	if clean := PlainText(name); clean != "" {
		return clean
	}
	return fallback
}
