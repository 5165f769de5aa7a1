package utils

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// ExtractEmail pulls the first valid email address out of a raw contact
// field. Source adapters hand back addresses in every imaginable shape:
// "jobs@acme.io, hr@acme.io", "<talent@acme.io>", "mailto:jobs@acme.io".
// The result is lowercased. Returns "" when no address is present.
func ExtractEmail(raw string) string {
	match := emailPattern.FindString(raw)
	if match == "" {
		return ""
	}
	return strings.ToLower(match)
}

// IsValidEmail reports whether the whole string is a single valid address.
func IsValidEmail(s string) bool {
	return emailPattern.FindString(s) == s
}
