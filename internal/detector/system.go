package detector

import (
	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

const (
	eventLogService = "Windows Event Log"

	resultLogCleared      = "The System log was cleared."
	resultInteractive     = "Malware (and some third party software) trigger this warning"
	resultEventLogStopped = "Selective event log manipulation may follow this event."
	resultEventLogStarted = "Selective event log manipulation may precede this event."
)

// System detects service and log tampering events in the System channel
type System struct {
	base
}

// NewSystem creates the System channel detector
func NewSystem(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *System {
	return &System{base: newBase(reg, an, opts)}
}

// Detect implements Detector
func (d *System) Detect(ev *types.Event) []types.Finding {
	switch ev.EventID {
	case "104":
		return d.logCleared(ev)
	case "7045":
		return d.newServiceCreated(ev)
	case "7030":
		return d.interactiveServiceWarning(ev)
	case "7036":
		return d.suspiciousServiceName(ev)
	case "7040":
		return d.eventLogServiceChanged(ev)
	}
	return nil
}

func (d *System) logCleared(ev *types.Event) []types.Finding {
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  types.HeadlineSystemLogClear,
		Result:    resultLogCleared,
	}}
}

// newServiceCreated checks the service name against the name rules and,
// independently, the image path as a command line.
func (d *System) newServiceCreated(ev *types.Event) []types.Finding {
	serviceName := ev.Field("ServiceName", "")
	imagePath := ev.Field("ImagePath", "")

	var out []types.Finding
	if text := d.nameRules(serviceName); text != "" {
		out = append(out, types.Finding{
			Timestamp:   ev.TimeCreated,
			EventID:     ev.EventID,
			Headline:    types.HeadlineNewService,
			Command:     imagePath,
			ServiceName: serviceName,
			Result:      text,
		})
	}

	if imagePath != "" {
		out = d.checkCommand(out, analyzer.Request{
			EventID:        ev.EventID,
			Command:        imagePath,
			ServiceCommand: true,
			ServiceName:    serviceName,
			Timestamp:      ev.TimeCreated,
		})
	}
	return out
}

func (d *System) interactiveServiceWarning(ev *types.Event) []types.Finding {
	serviceName := ev.Field("param1", "")
	return []types.Finding{{
		Timestamp:   ev.TimeCreated,
		EventID:     ev.EventID,
		Headline:    types.HeadlineInteractiveService,
		ServiceName: serviceName,
		Result:      joinLines(resultInteractive, d.nameRules(serviceName)),
	}}
}

func (d *System) suspiciousServiceName(ev *types.Event) []types.Finding {
	serviceName := ev.Field("param1", "")
	text := d.nameRules(serviceName)
	if text == "" {
		return nil
	}
	return []types.Finding{{
		Timestamp:   ev.TimeCreated,
		EventID:     ev.EventID,
		Headline:    types.HeadlineSuspiciousSvcName,
		ServiceName: serviceName,
		Result:      text,
	}}
}

func (d *System) eventLogServiceChanged(ev *types.Event) []types.Finding {
	if ev.Field("param1", "") != eventLogService {
		return nil
	}

	f := types.Finding{
		Timestamp:   ev.TimeCreated,
		EventID:     ev.EventID,
		ServiceName: eventLogService,
	}
	switch ev.Field("param2", "") {
	case "disabled":
		f.Headline = types.HeadlineEventLogStopped
		f.Result = resultEventLogStopped
	case "auto start":
		f.Headline = types.HeadlineEventLogStarted
		f.Result = resultEventLogStarted
	default:
		return nil
	}
	return []types.Finding{f}
}
