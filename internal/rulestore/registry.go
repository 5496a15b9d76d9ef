// Package rulestore builds the rule registry used by the detectors.
// Rules come from CSV tables (regexes.txt, whitelist.txt) and an optional
// directory of YAML rule documents. The registry is read-only once built.
package rulestore

import (
	"regexp"
)

// Rule is a compiled detection pattern scoped to a domain
type Rule struct {
	Domain      int
	Pattern     *regexp.Regexp
	Description string
	Source      string
}

// Patterns holds the single-purpose expressions used by the analyzer
// and detectors.
type Patterns struct {
	// ObfuscationAlphabet matches alphanumerics and common command symbols.
	ObfuscationAlphabet *regexp.Regexp
	// BinaryDigits matches the characters counted as binary encoding.
	BinaryDigits *regexp.Regexp

	// EncodedCommand recognizes a PowerShell -EncodedCommand invocation.
	EncodedCommand *regexp.Regexp
	// EncodedFlag strips everything up to and including the encoded flag.
	EncodedFlag *regexp.Regexp
	// Base64Call recognizes a .NET FromBase64String call.
	Base64Call *regexp.Regexp
	// Base64CallPrefix strips everything up to the call's opening quote.
	Base64CallPrefix *regexp.Regexp
	// QuoteTail strips the closing quote and everything after it.
	QuoteTail *regexp.Regexp
	// CompressedStream recognizes a decompression wrapper around a payload.
	CompressedStream *regexp.Regexp

	HostApplication *regexp.Regexp
	LineFeed        *regexp.Regexp
	AppLockerSuffix *regexp.Regexp
	EMETApplication *regexp.Regexp
}

// DefaultPatterns returns the built-in auxiliary patterns
func DefaultPatterns() Patterns {
	return Patterns{
		ObfuscationAlphabet: regexp.MustCompile(`[a-z0-9/\\;:|.]`),
		BinaryDigits:        regexp.MustCompile(`[01]`),

		EncodedCommand:   regexp.MustCompile(`(?i)-enc.*[a-z0-9/+=]{100}`),
		EncodedFlag:      regexp.MustCompile(`(?is)^.* -enc(odedcommand)? `),
		Base64Call:       regexp.MustCompile(`(?i):FromBase64String\(`),
		Base64CallPrefix: regexp.MustCompile(`(?is)^.*:FromBase64String\(['"]*`),
		QuoteTail:        regexp.MustCompile(`(?s)['"].*$`),
		CompressedStream: regexp.MustCompile(`(?i)(GzipStream|DeflateStream).*Decompress`),

		HostApplication: regexp.MustCompile(`(?s)^.*(Host Application|ホスト アプリケーション) = `),
		LineFeed:        regexp.MustCompile(`(?s)\r?\n.*$`),
		AppLockerSuffix: regexp.MustCompile(`(?s) was .*$`),
		EMETApplication: regexp.MustCompile(`^Application: `),
	}
}

// Registry is the immutable rule set shared by all detectors
type Registry struct {
	rules     []Rule
	whitelist []*regexp.Regexp
	patterns  Patterns
}

// NewRegistry creates a registry from already compiled rules.
// Rules with an empty pattern or description are dropped.
func NewRegistry(rules []Rule, whitelist []*regexp.Regexp) *Registry {
	r := &Registry{
		rules:    make([]Rule, 0, len(rules)),
		patterns: DefaultPatterns(),
	}
	for _, rule := range rules {
		if rule.Pattern == nil || rule.Pattern.String() == "" || rule.Description == "" {
			continue
		}
		r.rules = append(r.rules, rule)
	}
	for _, re := range whitelist {
		if re != nil && re.String() != "" {
			r.whitelist = append(r.whitelist, re)
		}
	}
	return r
}

// Empty returns a registry with no rules and no whitelist
func Empty() *Registry {
	return NewRegistry(nil, nil)
}

// MatchDomain returns the descriptions of every rule in the domain that
// matches text, in load order.
func (r *Registry) MatchDomain(domain int, text string) []string {
	var out []string
	for i := range r.rules {
		rule := &r.rules[i]
		if rule.Domain != domain {
			continue
		}
		if rule.Pattern.MatchString(text) {
			out = append(out, rule.Description)
		}
	}
	return out
}

// IsWhitelisted reports whether any whitelist pattern matches text
func (r *Registry) IsWhitelisted(text string) bool {
	for _, re := range r.whitelist {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// Patterns returns the auxiliary patterns
func (r *Registry) Patterns() *Patterns {
	return &r.patterns
}

// RuleCount returns the number of loaded rules
func (r *Registry) RuleCount() int {
	return len(r.rules)
}

// WhitelistCount returns the number of loaded whitelist patterns
func (r *Registry) WhitelistCount() int {
	return len(r.whitelist)
}
