package arena

import (
	"sort"

	modelpkg "shardthief.gg/internal/sim/round/model"
)

// Bar is the hold bar shown to registered viewers.
type Bar struct {
	Percent  float64
	TornDown bool

	viewers map[modelpkg.ParticipantID]bool
}

func (b Bar) Viewers() []modelpkg.ParticipantID {
	out := make([]modelpkg.ParticipantID, 0, len(b.viewers))
	for id := range b.viewers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b Bar) Sees(id modelpkg.ParticipantID) bool { return !b.TornDown && b.viewers[id] }

func (a *Arena) Bar() Bar { return a.bar }

func (a *Arena) UpdateHoldPercent(fraction float64) {
	if a.bar.TornDown {
		return
	}
	a.bar.Percent = fraction
}

func (a *Arena) AddParticipant(id modelpkg.ParticipantID) {
	if a.bar.TornDown {
		return
	}
	a.bar.viewers[id] = true
}

func (a *Arena) RemoveParticipant(id modelpkg.ParticipantID) {
	delete(a.bar.viewers, id)
}

func (a *Arena) Teardown() {
	a.bar.TornDown = true
	a.bar.viewers = map[modelpkg.ParticipantID]bool{}
}
