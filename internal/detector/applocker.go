package detector

import (
	"github.com/digggggmori-pixel/ferret-evtx/internal/analyzer"
	"github.com/digggggmori-pixel/ferret-evtx/internal/rulestore"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// AppLocker reports AppLocker warnings and blocks
type AppLocker struct {
	base
}

// NewAppLocker creates the AppLocker channel detector
func NewAppLocker(reg *rulestore.Registry, an *analyzer.Analyzer, opts Options) *AppLocker {
	return &AppLocker{base: newBase(reg, an, opts)}
}

// Detect implements Detector
func (d *AppLocker) Detect(ev *types.Event) []types.Finding {
	switch ev.EventID {
	case "8003":
		return d.report(ev, types.HeadlineAppLockerWarning)
	case "8004":
		return d.report(ev, types.HeadlineAppLockerBlock)
	}
	return nil
}

// report derives the blocked path from the message by dropping the
// trailing " was ..." clause.
func (d *AppLocker) report(ev *types.Event, headline string) []types.Finding {
	message := ev.MessageOr("")
	command := d.reg.Patterns().AppLockerSuffix.ReplaceAllString(message, "")
	return []types.Finding{{
		Timestamp: ev.TimeCreated,
		EventID:   ev.EventID,
		Headline:  headline,
		Command:   command,
		Result:    message,
	}}
}
