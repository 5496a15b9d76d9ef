package detector

import (
	"strings"

	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

const emetMessageMissing = "EMET Message field is blank. Install EMET locally to see full details of this alert"

// Application detects EMET blocks in the Application channel
type Application struct {
	base
}

// NewApplication creates the Application channel detector
func NewApplication(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *Application {
	return &Application{base: newBase(reg, an, opts)}
}

// Detect implements Detector
func (d *Application) Detect(ev *types.Event) []types.Finding {
	if ev.EventID != "2" {
		return nil
	}
	return d.emet(ev)
}

// emet parses the EMET block message: line 0 is the summary, line 3 the
// application and line 4 the user name.
func (d *Application) emet(ev *types.Event) []types.Finding {
	if ev.Provider() != "EMET" {
		return nil
	}
	if ev.Message == nil {
		return []types.Finding{{
			Kind:      types.KindWarning,
			Timestamp: ev.TimeCreated,
			EventID:   ev.EventID,
			Headline:  types.HeadlineEMETMessageMissing,
			Result:    emetMessageMissing,
		}}
	}

	lines := strings.Split(*ev.Message, "\n")
	if len(lines) < 5 {
		return nil
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}

	summary := lines[0]
	command := d.reg.Patterns().EMETApplication.ReplaceAllString(lines[3], "")
	username := lines[4]

	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineEMETBlock,
		Command:   command,
		Result:    joinLines(summary, "Username: "+username),
	}}
}
