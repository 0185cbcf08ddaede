// Package redact masks sensitive substrings in log lines before display.
//
// Rules run in a fixed order and each rule replaces every non-overlapping
// match. Later rules see the output of earlier ones, so a placeholder or a
// partially masked value can be matched again; the order is part of the
// contract.
package redact

import (
	"fmt"
	"regexp"
)

// Rule is a single pattern-to-placeholder substitution.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string // expanded with regexp template syntax (${1})
}

// NewRule compiles a rule from a pattern string.
func NewRule(name, pattern, replacement string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", name, err)
	}
	return Rule{Name: name, Pattern: re, Replacement: replacement}, nil
}

func mustRule(name, pattern, replacement string) Rule {
	r, err := NewRule(name, pattern, replacement)
	if err != nil {
		panic(err)
	}
	return r
}

// Rule names, in application order.
const (
	RuleIPv4        = "ipv4"
	RuleIPv6        = "ipv6"
	RuleMAC         = "mac"
	RuleEmail       = "email"
	RuleURLAuth     = "url-credentials"
	RuleBearer      = "authorization-bearer"
	RuleAuth        = "authorization"
	RuleAPIKey      = "x-api-key"
	RuleQueryParam  = "query-secret"
	RuleHex         = "hex"
	RuleJWT         = "jwt"
	RuleWindowsPath = "windows-path"
	RuleHomePath    = "home-path"
)

var defaultRules = []Rule{
	mustRule(RuleIPv4, `\b(?:\d{1,3}\.){3}\d{1,3}\b`, "[IP]"),
	mustRule(RuleIPv6, `\b(?:[A-Fa-f0-9]{0,4}:){2,}[A-Fa-f0-9]{0,4}\b`, "[IP6]"),
	mustRule(RuleMAC, `\b(?:[A-Fa-f0-9]{2}:){5}[A-Fa-f0-9]{2}\b`, "[MAC]"),
	mustRule(RuleEmail, `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`, "[EMAIL]"),
	mustRule(RuleURLAuth, `(?i)(https?://)([^/\s:@]+):([^@/\s]+)@`, "${1}***:***@"),
	mustRule(RuleBearer, `(?i)Authorization\s*:\s*Bearer\s+\S+`, "Authorization: Bearer [REDACTED]"),
	mustRule(RuleAuth, `(?i)Authorization\s*:\s*\S+`, "Authorization: [REDACTED]"),
	mustRule(RuleAPIKey, `(?i)X-API-KEY\s*:\s*\S+`, "X-API-Key: [REDACTED]"),
	mustRule(RuleQueryParam, `(?i)([?&])(password|passwd|pwd|token|api[_-]?key|secret|key)=([^&#\s]+)`, "${1}${2}=[REDACTED]"),
	mustRule(RuleHex, `(?i)\b[a-f0-9]{32,}\b`, "[HEX]"),
	mustRule(RuleJWT, `\b[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\b`, "[JWT]"),
	mustRule(RuleWindowsPath, `[A-Za-z]:\\[^\s"]+`, "[PATH]"),
	mustRule(RuleHomePath, `/home/[^\s"]+`, "[PATH]"),
}

// DefaultRules returns a copy of the built-in rule list in application order.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

// Redactor applies an ordered list of rules. It is safe for concurrent use.
type Redactor struct {
	rules []Rule
}

// New creates a redactor with the default rules followed by extra.
func New(extra ...Rule) *Redactor {
	rules := DefaultRules()
	rules = append(rules, extra...)
	return &Redactor{rules: rules}
}

// NewWithRules creates a redactor that applies exactly the given rules.
func NewWithRules(rules []Rule) *Redactor {
	return &Redactor{rules: append([]Rule(nil), rules...)}
}

// Rules returns the rule names in application order.
func (r *Redactor) Rules() []string {
	names := make([]string, len(r.rules))
	for i, rule := range r.rules {
		names[i] = rule.Name
	}
	return names
}

// Redact masks a single line. Empty input is returned unchanged.
func (r *Redactor) Redact(line string) string {
	if line == "" {
		return line
	}
	s := line
	for _, rule := range r.rules {
		s = rule.Pattern.ReplaceAllString(s, rule.Replacement)
	}
	return s
}

// RedactAll masks every line and returns a new slice.
func (r *Redactor) RedactAll(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = r.Redact(l)
	}
	return out
}

var std = New()

// Redact masks a line with the default rules.
func Redact(line string) string {
	return std.Redact(line)
}
