package session

import (
	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/arena"
	"shardthief.gg/internal/sim/round"
)

type Phase string

const (
	PhaseLobby  Phase = "LOBBY"
	PhaseActive Phase = "ACTIVE"
)

type Config struct {
	TickRateHz int
	Round      round.Config
	Arena      arena.Spec

	// MinPlayers needed in the lobby before the start countdown runs.
	MinPlayers      int
	StartDelayTicks int
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	PlayerID string
	Act      protocol.ActMsg
}

type RecordedJoin struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedAction struct {
	PlayerID string          `json:"player_id"`
	Act      protocol.ActMsg `json:"act"`
}

type TickLogEntry struct {
	Tick    uint64           `json:"tick"`
	Phase   Phase            `json:"phase"`
	RoundID string           `json:"round_id,omitempty"`
	Joins   []RecordedJoin   `json:"joins,omitempty"`
	Leaves  []string         `json:"leaves,omitempty"`
	Actions []RecordedAction `json:"actions,omitempty"`
	Digest  string           `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type RoundStart struct {
	RoundID      string              `json:"round_id"`
	Number       int                 `json:"number"`
	Tick         uint64              `json:"tick"`
	Participants []round.Participant `json:"participants"`
	Config       round.Config        `json:"config"`
}

type RoundFinish struct {
	RoundID    string `json:"round_id"`
	Tick       uint64 `json:"tick"`
	Winner     string `json:"winner,omitempty"`
	WinnerName string `json:"winner_name,omitempty"`
	// Reason is "win" or "abandoned".
	Reason string `json:"reason"`
}

type RoundTransfer struct {
	RoundID  string         `json:"round_id"`
	Tick     uint64         `json:"tick"`
	Transfer round.Transfer `json:"transfer"`
}

// Sink receives round lifecycle records. Implementations must not block the
// session loop.
type Sink interface {
	RoundStarted(r RoundStart)
	RoundTransferred(t RoundTransfer)
	RoundFinished(r RoundFinish)
}

type Options struct {
	TickLogger TickLogger
	Sinks      []Sink
}
