package model

// ParticipantID is the opaque handle of a connected player.
type ParticipantID string

type Participant struct {
	ID   ParticipantID
	Name string
}

// Cell is a palette index describing the full contents of one world cell.
type Cell uint16

type GameMode int

const (
	ModeAdventure GameMode = iota + 1
	ModeSpectator
)

func (m GameMode) String() string {
	switch m {
	case ModeAdventure:
		return "ADVENTURE"
	case ModeSpectator:
		return "SPECTATOR"
	default:
		return "UNKNOWN"
	}
}

type Sound string

const (
	SoundPickup    Sound = "ITEM_PICKUP"
	SoundDrop      Sound = "SPLASH_POTION_BREAK"
	SoundWin       Sound = "FIREWORK_ROCKET_BLAST"
	SoundCountTick Sound = "NOTE_BLOCK_BIT"
)

type Color string

const (
	ColorRed    Color = "RED"
	ColorGold   Color = "GOLD"
	ColorYellow Color = "YELLOW"
	ColorWhite  Color = "WHITE"
)

type TitleSlot string

const (
	SlotTitle     TitleSlot = "TITLE"
	SlotActionBar TitleSlot = "ACTIONBAR"
)

type Title struct {
	Slot  TitleSlot
	Text  string
	Color Color
	Bold  bool
}

type Effect string

const EffectSpeed Effect = "SPEED"

// EntityRef names a transient world entity (e.g. a projectile).
type EntityRef string

type DamageSource struct {
	Projectile bool
	// Entity is the projectile that dealt the damage, if any.
	Entity EntityRef
}
