// Package analyzer scores command lines for signs of malicious intent.
//
// A command line is checked in a fixed order: whitelist veto, length,
// obfuscation, rule table, creator process and encoded payloads. Every
// signal that fires contributes one or more lines to the result text.
// An empty result means no finding.
package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/digggggmori-pixel/ferret-evtx/internal/logger"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultMinPercent = 0.65
	maxBinaryPercent  = 0.50
)

// creatorWarnings maps parent process names to the lateral movement
// technique they indicate when they spawn a bare "powershell".
var creatorWarnings = map[string]string{
	"PSEXESVC": "PowerShell launched via PsExec",
	"WmiPrvSE": "PowerShell launched via WMI",
}

// Request describes one command line to analyze
type Request struct {
	EventID        string
	Command        string
	MinLength      int
	ServiceCommand bool
	ServiceName    string
	Creator        string
	Timestamp      string
}

type cacheKey struct {
	command   string
	minLength int
	creator   string
}

type verdict struct {
	result  string
	decoded string
}

// Analyzer evaluates command lines against a Registry.
// It is safe for concurrent use.
type Analyzer struct {
	reg   *rulestore.Registry
	cache *lru.Cache[cacheKey, verdict]
}

// New creates an Analyzer. cacheSize bounds the number of memoized
// verdicts; zero disables the cache.
func New(reg *rulestore.Registry, cacheSize int) *Analyzer {
	a := &Analyzer{reg: reg}
	if cacheSize > 0 {
		c, err := lru.New[cacheKey, verdict](cacheSize)
		if err != nil {
			logger.Warn("Verdict cache disabled: %v", err)
		} else {
			a.cache = c
		}
	}
	return a
}

// Analyze returns a finding for req, or nil when no signal fired or the
// command is whitelisted.
func (a *Analyzer) Analyze(req Request) *types.Finding {
	v := a.verdictFor(req.Command, req.MinLength, req.Creator)
	if v.result == "" {
		return nil
	}

	f := &types.Finding{
		Kind:      types.KindAlert,
		Timestamp: req.Timestamp,
		EventID:   req.EventID,
		Headline:  types.HeadlineSuspiciousCommand,
		Command:   req.Command,
		Result:    v.result,
		Decoded:   v.decoded,
	}
	if req.ServiceCommand {
		f.Headline = types.HeadlineSuspiciousService
		f.ServiceName = req.ServiceName
	}
	logger.FindingInfo(f.EventID, f.Headline, f.Command)
	return f
}

func (a *Analyzer) verdictFor(command string, minLength int, creator string) verdict {
	if a.cache == nil {
		return a.evaluate(command, minLength, creator)
	}
	key := cacheKey{command: command, minLength: minLength, creator: creator}
	if v, ok := a.cache.Get(key); ok {
		return v
	}
	v := a.evaluate(command, minLength, creator)
	a.cache.Add(key, v)
	return v
}

func (a *Analyzer) evaluate(command string, minLength int, creator string) verdict {
	if a.reg.IsWhitelisted(command) {
		return verdict{}
	}

	var lines []string
	if len(command) > minLength {
		lines = append(lines, fmt.Sprintf("Long Command Line: greater than %d bytes", minLength))
	}
	lines = append(lines, Obfuscation(a.reg.Patterns(), command)...)
	lines = append(lines, a.reg.MatchDomain(types.DomainCommandLine, command)...)
	lines = append(lines, CreatorWarning(command, creator)...)

	var decoded string
	if p, ok := a.decodePayload(command); ok {
		decoded = p.text
		if p.compressed {
			lines = append(lines, "Base64-encoded and compressed function")
		} else {
			lines = append(lines, "Base64-encoded function")
			lines = append(lines, Obfuscation(a.reg.Patterns(), p.text)...)
			lines = append(lines, a.reg.MatchDomain(types.DomainCommandLine, p.text)...)
		}
	}

	return verdict{result: strings.Join(lines, "\n"), decoded: decoded}
}

// Obfuscation returns the obfuscation signals for s. Two independent
// checks run over the lowercased text: the share of characters from the
// common command alphabet and the share of binary digits.
func Obfuscation(p *rulestore.Patterns, s string) []string {
	lower := strings.ToLower(s)
	length := utf8.RuneCountInString(lower)
	if length == 0 {
		return nil
	}
	n := float64(length)

	var out []string

	minPercent := defaultMinPercent
	if n/100 < minPercent {
		minPercent = n / 100
	}
	rest := utf8.RuneCountInString(p.ObfuscationAlphabet.ReplaceAllString(lower, ""))
	percent := (n - float64(rest)) / n
	if percent < minPercent {
		out = append(out, fmt.Sprintf("Possible command obfuscation: only %d%% alphanumeric and common symbols", int(percent*100)))
	}

	rest = utf8.RuneCountInString(p.BinaryDigits.ReplaceAllString(lower, ""))
	binary := (n - float64(rest)) / n
	if binary > maxBinaryPercent {
		out = append(out, fmt.Sprintf("Possible command obfuscation: %d%% zeroes and ones (possible numeric or binary encoding)", int(binary*100)))
	}
	return out
}

// CreatorWarning flags a bare "powershell" command spawned by a known
// lateral movement service.
func CreatorWarning(command, creator string) []string {
	if creator == "" || command != "powershell" {
		return nil
	}
	if technique, ok := creatorWarnings[creator]; ok {
		return []string{fmt.Sprintf("%s: %s", technique, creator)}
	}
	return nil
}
