// Package enrollment normalizes student enrollment identifiers before they are
// used as directory names or primary keys.
package enrollment

import "strings"

// Sanitize upper-cases raw and drops every character outside [A-Z0-9_-].
// Path separators, dots and whitespace are removed, never replaced, so the
// result is always safe to use as a single path element. An empty result
// means the input is not a usable enrollment.
func Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether s is non-empty and already in sanitized form.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !allowed(r) {
			return false
		}
	}
	return true
}

func allowed(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}
