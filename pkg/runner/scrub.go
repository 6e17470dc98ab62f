package runner

import "regexp"

// redactedLiteral is the fixed replacement text mandated for subprocess
// output scrubbing. Unlike internal/tracing/redact, which tags the kind
// of secret it found, this replacement is always the same literal —
// the subprocess runner does not want to hint at what it redacted.
const redactedLiteral = "***REDACTED***"

// Scrubber replaces matches of a fixed pattern set with redactedLiteral.
// Patterns are compiled once at construction.
type Scrubber struct {
	patterns []*regexp.Regexp
}

// StandardPatterns returns the regexes the subprocess runner applies to
// captured stdout/stderr when scrubbing is enabled: API-key prefixes,
// bearer tokens, authorization headers, and password=... assignments.
func StandardPatterns() []string {
	return []string{
		`(?i)\bAuthorization:\s*Bearer\s+\S+`,
		`(?i)\bbearer\s+[a-z0-9._\-]+`,
		`\bgh[pousr]_[A-Za-z0-9]{20,}`,
		`\bsk-[A-Za-z0-9]{20,}`,
		`\bAKIA[0-9A-Z]{16}\b`,
		`(?i)\b(password|passwd|pwd|api[_-]?key|secret|token)\s*[:=]\s*\S+`,
	}
}

// NewScrubber compiles pattern strings once. Uncompilable patterns are
// skipped rather than panicking — the pattern list is a fixed, internal
// constant so this should never happen outside a programming error.
func NewScrubber(patterns []string) *Scrubber {
	s := &Scrubber{}
	for _, p := range patterns {
		if re, err := regexp.Compile(p); err == nil {
			s.patterns = append(s.patterns, re)
		}
	}
	return s
}

// Redact replaces every match of every compiled pattern with the fixed
// ***REDACTED*** literal.
func (s *Scrubber) Redact(text string) string {
	if s == nil || text == "" {
		return text
	}
	for _, re := range s.patterns {
		text = re.ReplaceAllString(text, redactedLiteral)
	}
	return text
}
