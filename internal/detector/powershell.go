package detector

import (
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// hostApplicationMarkers identify a 4103 ContextInfo block that names the
// host command, in English and Japanese locales.
var hostApplicationMarkers = []string{
	"Host Application",
	"ホスト アプリケーション",
}

// PowerShell checks pipeline execution and script block logging events
type PowerShell struct {
	base
}

// NewPowerShell creates the PowerShell channel detector
func NewPowerShell(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *PowerShell {
	return &PowerShell{base: newBase(reg, an, opts)}
}

// Detect implements Detector
func (d *PowerShell) Detect(ev *types.Event) []types.Finding {
	switch ev.EventID {
	case "4103":
		return d.pipelineExecution(ev)
	case "4104":
		return d.scriptBlock(ev)
	}
	return nil
}

// pipelineExecution isolates the host command from ContextInfo: everything
// up to "Host Application = " and everything from the next line feed on is
// removed.
func (d *PowerShell) pipelineExecution(ev *types.Event) []types.Finding {
	contextInfo := ev.Field("ContextInfo", "")
	if !containsAny(contextInfo, hostApplicationMarkers) {
		return nil
	}

	p := d.reg.Patterns()
	command := p.HostApplication.ReplaceAllString(contextInfo, "")
	command = p.LineFeed.ReplaceAllString(command, "")
	if command == "" {
		return nil
	}
	return d.checkCommand(nil, analyzer.Request{
		EventID:   ev.EventID,
		Command:   command,
		Timestamp: ev.TimeCreated,
	})
}

// scriptBlock checks interactively entered script blocks. Blocks that
// come from a script file carry a Path and are skipped.
func (d *PowerShell) scriptBlock(ev *types.Event) []types.Finding {
	if ev.Field("Path", "") != "" {
		return nil
	}
	text := ev.Field("ScriptBlockText", "")
	if text == "" {
		return nil
	}
	return d.checkCommand(nil, analyzer.Request{
		EventID:   ev.EventID,
		Command:   text,
		Timestamp: ev.TimeCreated,
	})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
