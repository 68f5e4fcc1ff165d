// Package redact strips sensitive values from drafted reply text before it
// is persisted or sent. The pattern set is fixed and case-insensitive;
// matches are replaced with a literal marker, preserving surrounding text.
package redact

import "regexp"

// Marker replaces every matched sensitive value.
const Marker = "[redacted]"

// patterns are applied in order. The marker itself matches none of them,
// which is what makes Sanitize idempotent.
var patterns = []*regexp.Regexp{
	// payment card numbers, with optional space/dash separators
	regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`),
	// password assignments: "password: hunter2", "password=hunter2"
	regexp.MustCompile(`(?i)password\s*[:=]\s*\S+`),
	// SSN-shaped identifiers
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
}

// Sanitize returns text with all sensitive matches replaced by Marker.
func Sanitize(text string) string {
	for _, p := range patterns {
		text = p.ReplaceAllString(text, Marker)
	}
	return text
}
