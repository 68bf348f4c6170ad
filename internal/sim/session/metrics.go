package session

import "time"

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

// Metrics is a snapshot published after every tick. Safe to read from any
// goroutine.
type Metrics struct {
	Tick        uint64      `json:"tick"`
	Phase       Phase       `json:"phase"`
	RoundID     string      `json:"round_id,omitempty"`
	Rounds      int         `json:"rounds"`
	Players     int         `json:"players"`
	Holder      string      `json:"holder,omitempty"`
	HoldPercent float64     `json:"hold_percent"`
	StepMS      float64     `json:"step_ms"`
	QueueDepths QueueDepths `json:"queue_depths"`
}

func (s *Session) Metrics() Metrics {
	if m, ok := s.metrics.Load().(Metrics); ok {
		return m
	}
	return Metrics{Phase: PhaseLobby}
}

func (s *Session) publishMetrics(nowTick uint64, started time.Time) {
	m := Metrics{
		Tick:    nowTick,
		Phase:   s.phase,
		RoundID: s.roundID,
		Rounds:  s.roundNum,
		Players: len(s.order),
		StepMS:  float64(time.Since(started).Microseconds()) / 1000,
		QueueDepths: QueueDepths{
			Inbox: len(s.inbox),
			Join:  len(s.join),
			Leave: len(s.leave),
		},
	}
	if s.ctrl != nil {
		if h, ok := s.ctrl.Holder(); ok {
			m.Holder = string(h)
		}
		m.HoldPercent = s.ctrl.HoldPercent()
	}
	s.metrics.Store(m)
}
