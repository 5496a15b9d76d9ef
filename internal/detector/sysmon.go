package detector

import (
	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// Sysmon checks process creation command lines and, when enabled,
// unsigned image loads.
type Sysmon struct {
	base
	checkUnsigned bool
}

// NewSysmon creates the Sysmon channel detector
func NewSysmon(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *Sysmon {
	return &Sysmon{
		base:          newBase(reg, an, opts),
		checkUnsigned: opts.CheckUnsigned,
	}
}

// Detect implements Detector
func (d *Sysmon) Detect(ev *types.Event) []types.Finding {
	switch ev.EventID {
	case "1":
		return d.processCreate(ev)
	case "7":
		return d.imageLoad(ev)
	}
	return nil
}

func (d *Sysmon) processCreate(ev *types.Event) []types.Finding {
	commandLine, ok := ev.LookupField("CommandLine")
	if !ok {
		return nil
	}
	return d.checkCommand(nil, analyzer.Request{
		EventID:   ev.EventID,
		Command:   commandLine,
		Creator:   ev.Field("ParentImage", ""),
		Timestamp: ev.TimeCreated,
	})
}

func (d *Sysmon) imageLoad(ev *types.Event) []types.Finding {
	if !d.checkUnsigned {
		return nil
	}
	if ev.Field("Signed", "") != "false" {
		return nil
	}
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineUnsignedImage,
		Command:   ev.Field("ImageLoaded", ""),
		Result:    "Loaded by: " + ev.Field("Image", ""),
	}}
}
