// Package policy holds the engine's safety rules: PII redaction applied
// before anything reaches durable memory, and the approval rule deciding when
// a turn must pause for human sign-off.
package policy

import "regexp"

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
)

// RedactPII masks common high-risk PII patterns in user text. Job seekers
// routinely paste contact blocks from resumes; none of it belongs in
// interaction history.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// SSN before phone: a dashed SSN would otherwise match the phone pattern.
	next = ssnPattern.ReplaceAllString(out, "[REDACTED_SSN]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}
