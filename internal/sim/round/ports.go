package round

// World is the environment capability surface the round drives.
type World interface {
	QueryCell(pos Vec3i) (Cell, error)
	SetCell(pos Vec3i, c Cell) error
	IsLandable(c Cell, pos Vec3i) bool

	// Position reports the block position of a participant.
	Position(id ParticipantID) (Vec3i, bool)
	SetGameMode(id ParticipantID, mode GameMode)
	Teleport(id ParticipantID, pos Vec3i, yaw float64)

	PlaySoundAt(pos Vec3i, s Sound, volume, pitch float32)
	BroadcastSound(s Sound, volume, pitch float32)
	BroadcastMessage(text string)
	SendMessage(id ParticipantID, text string)
	BroadcastTitle(t Title)
	SendTitle(id ParticipantID, t Title)

	ApplyTimedEffect(id ParticipantID, e Effect, durationTicks, amplifier int)
	DestroyEntity(ref EntityRef)
}

// Presentation is the hold bar shown to everyone in the round.
type Presentation interface {
	UpdateHoldPercent(fraction float64)
	AddParticipant(id ParticipantID)
	RemoveParticipant(id ParticipantID)
	Teardown()
}

type Inventory interface {
	Clear(id ParticipantID)
	GrantBaseLoadout(id ParticipantID)
	GrantShardLoadout(id ParticipantID)
	RestockConsumable(id ParticipantID, max int)
}

// Recorder receives possession changes and the round outcome. Optional.
type Recorder interface {
	RecordTransfer(t Transfer)
	RecordFinish(r Result)
}

type Ports struct {
	World        World
	Presentation Presentation
	Inventory    Inventory
	Recorder     Recorder
}
