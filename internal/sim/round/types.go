package round

import modelpkg "shardthief.gg/internal/sim/round/model"

type Vec3i = modelpkg.Vec3i
type ParticipantID = modelpkg.ParticipantID
type Participant = modelpkg.Participant
type Cell = modelpkg.Cell
type GameMode = modelpkg.GameMode
type Sound = modelpkg.Sound
type Color = modelpkg.Color
type Title = modelpkg.Title
type Effect = modelpkg.Effect
type EntityRef = modelpkg.EntityRef
type DamageSource = modelpkg.DamageSource

const (
	ModeAdventure = modelpkg.ModeAdventure
	ModeSpectator = modelpkg.ModeSpectator
)

const (
	SoundPickup    = modelpkg.SoundPickup
	SoundDrop      = modelpkg.SoundDrop
	SoundWin       = modelpkg.SoundWin
	SoundCountTick = modelpkg.SoundCountTick
)

const (
	SlotTitle     = modelpkg.SlotTitle
	SlotActionBar = modelpkg.SlotActionBar
)

const EffectSpeed = modelpkg.EffectSpeed

const (
	ColorRed    = modelpkg.ColorRed
	ColorGold   = modelpkg.ColorGold
	ColorYellow = modelpkg.ColorYellow
	ColorWhite  = modelpkg.ColorWhite
)

// Map is the geometry the round needs from the loaded map.
type Map struct {
	Center Vec3i
	ShardY int
	SpawnY int
	// Marker is written into the world where the shard lies dropped.
	Marker Cell
}

func (m Map) ShardSpawn() Vec3i {
	return Vec3i{X: m.Center.X, Y: m.ShardY, Z: m.Center.Z}
}

type TransferKind string

const (
	TransferPickup TransferKind = "PICKUP"
	TransferSteal  TransferKind = "STEAL"
	TransferDrop   TransferKind = "DROP"
)

// Transfer records one change of shard possession.
type Transfer struct {
	Tick   uint64        `json:"tick"`
	Kind   TransferKind  `json:"kind"`
	From   ParticipantID `json:"from,omitempty"`
	To     ParticipantID `json:"to,omitempty"`
	Pos    [3]int        `json:"pos"`
	Reason string        `json:"reason,omitempty"`
}

type Result struct {
	Tick       uint64        `json:"tick"`
	Winner     ParticipantID `json:"winner"`
	WinnerName string        `json:"winner_name"`
}
