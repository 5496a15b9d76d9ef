package scan

import (
	"github.com/digggggmori-pixel/ferret-evtx/internal/detector"
	"github.com/digggggmori-pixel/ferret-evtx/pkg/types"
)

// Router dispatches each event to the detector owning its channel
type Router struct {
	set *detector.Set
}

// NewRouter creates a router over a detector set
func NewRouter(set *detector.Set) *Router {
	return &Router{set: set}
}

// Route returns the findings for one event in generation order.
// Events from unrecognized channels yield nothing.
func (r *Router) Route(ev *types.Event) []types.Finding {
	d := r.detectorFor(types.ParseChannel(ev.Channel))
	if d == nil {
		return nil
	}
	return d.Detect(ev)
}

func (r *Router) detectorFor(ch types.Channel) detector.Detector {
	switch ch {
	case types.ChannelSecurity:
		return r.set.Security
	case types.ChannelSystem:
		return r.set.System
	case types.ChannelApplication:
		return r.set.Application
	case types.ChannelAppLocker:
		return r.set.AppLocker
	case types.ChannelSysmon:
		return r.set.Sysmon
	case types.ChannelPowerShell:
		return r.set.PowerShell
	}
	return nil
}
