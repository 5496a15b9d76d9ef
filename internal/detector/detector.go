// Package detector holds the per-channel detectors. Each detector gates on
// the event IDs it understands and maps one event to zero or more findings.
package detector

import (
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// DefaultMinLength is the command length above which a command line is
// reported as long.
const DefaultMinLength = 1000

// Detector maps one event to findings
type Detector interface {
	Detect(ev *types.Event) []types.Finding
}

// Options configures detector construction
type Options struct {
	MinLength     int
	CheckUnsigned bool
}

// DefaultOptions returns the default detector options
func DefaultOptions() Options {
	return Options{
		MinLength:     DefaultMinLength,
		CheckUnsigned: false,
	}
}

// base carries the shared, read-only collaborators
type base struct {
	reg       *rulestore.Registry
	analyzer  *analyzer.Analyzer
	minLength int
}

func newBase(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) base {
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return base{reg: reg, analyzer: an, minLength: minLength}
}

// nameRules returns the newline-joined descriptions of every name-domain
// rule matching name.
func (b *base) nameRules(name string) string {
	return strings.Join(b.reg.MatchDomain(types.DomainName, name), "\n")
}

// checkCommand runs the analyzer and appends its finding, if any
func (b *base) checkCommand(out []types.Finding, req analyzer.Request) []types.Finding {
	if req.MinLength == 0 {
		req.MinLength = b.minLength
	}
	if f := b.analyzer.Analyze(req); f != nil {
		out = append(out, *f)
	}
	return out
}

// Set holds one detector per recognized channel
type Set struct {
	Security    *Security
	System      *System
	Application *Application
	AppLocker   *AppLocker
	Sysmon      *Sysmon
	PowerShell  *PowerShell
}

// NewSet builds every channel detector over a shared registry and analyzer
func NewSet(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *Set {
	return &Set{
		Security:    NewSecurity(reg, an, opts),
		System:      NewSystem(reg, an, opts),
		Application: NewApplication(reg, an, opts),
		AppLocker:   NewAppLocker(reg, an, opts),
		Sysmon:      NewSysmon(reg, an, opts),
		PowerShell:  NewPowerShell(reg, an, opts),
	}
}

func joinLines(lines ...string) string {
	var kept []string
	for _, l := range lines {
		if l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}
