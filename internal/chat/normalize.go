package chat

import (
	"regexp"
	"strings"
)

var nonQueryChars = regexp.MustCompile(`[^a-z0-9\s]`)

// Normalize lowercases q, drops every character other than a-z, 0-9 and
// whitespace, and trims the result. Normalize(Normalize(q)) == Normalize(q).
func Normalize(q string) string {
	return strings.TrimSpace(nonQueryChars.ReplaceAllString(strings.ToLower(q), ""))
}
