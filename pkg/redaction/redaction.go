// Package redaction scrubs sensitive substrings out of log content before
// it reaches a tool result or stream event, in the manner of the teacher's
// masking.Service: a set of pre-compiled regex patterns, each with a name
// and replacement, applied in a fixed order and logged when they fire.
package redaction

import (
	"log/slog"
	"regexp"
)

// Pattern is a single compiled redaction rule.
type Pattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns covers the {high, moderate} PII risk tiers the ETL
// normalizer's classifier recognizes (pkg/etl/privacy.go): secrets/tokens,
// emails, phone numbers, and bare IPs.
var builtinPatterns = []Pattern{
	{Name: "bearer_token", Regex: regexp.MustCompile(`(?i)bearer\s+[a-z0-9._-]+`), Replacement: "bearer [REDACTED]"},
	{Name: "api_key", Regex: regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)\S+`), Replacement: "${1}[REDACTED]"},
	{Name: "password", Regex: regexp.MustCompile(`(?i)(password\s*[:=]\s*)\S+`), Replacement: "${1}[REDACTED]"},
	{Name: "email", Regex: regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), Replacement: "[REDACTED-EMAIL]"},
	{Name: "phone", Regex: regexp.MustCompile(`\+?\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`), Replacement: "[REDACTED-PHONE]"},
	{Name: "ipv4", Regex: regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`), Replacement: "[REDACTED-IP]"},
}

// Redactor applies every builtin pattern to text, in order, and reports
// which rules fired — so callers (the orchestrator's redaction middleware,
// spec §4.7) can log what was scrubbed without logging the scrubbed value
// itself.
type Redactor struct {
	enabled  bool
	patterns []Pattern
}

// New builds a Redactor. When enabled is false, Apply is a no-op — the
// gateway still builds the redactor so PII_REDACTION_ENABLED can be
// flipped without restructuring callers.
func New(enabled bool) *Redactor {
	return &Redactor{enabled: enabled, patterns: builtinPatterns}
}

// Apply returns the redacted text and the names of every pattern that
// matched at least once.
func (r *Redactor) Apply(text string) (redacted string, firedRules []string) {
	if !r.enabled {
		return text, nil
	}

	redacted = text
	for _, p := range r.patterns {
		if p.Regex.MatchString(redacted) {
			redacted = p.Regex.ReplaceAllString(redacted, p.Replacement)
			firedRules = append(firedRules, p.Name)
		}
	}
	if len(firedRules) > 0 {
		slog.Debug("redaction applied", "rules", firedRules)
	}
	return redacted, firedRules
}
