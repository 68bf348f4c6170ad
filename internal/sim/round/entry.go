package round

// Entry is the per-participant round record.
type Entry struct {
	ID   ParticipantID
	Name string
	// Slot is the spawn slot handed out when the round opened.
	Slot int

	Count                int
	InvulnerabilityTicks int
}

func newEntry(p Participant, slot, count int) *Entry {
	return &Entry{ID: p.ID, Name: p.Name, Slot: slot, Count: count}
}

func (e *Entry) DecrementCount() { e.Count-- }

func (e *Entry) SetInvulnerability(ticks int) {
	if ticks < 0 {
		ticks = 0
	}
	e.InvulnerabilityTicks = ticks
}

func (e *Entry) Tick() {
	if e.InvulnerabilityTicks > 0 {
		e.InvulnerabilityTicks--
	}
}

func (e *Entry) CanBeStolen() bool { return e.InvulnerabilityTicks <= 0 }

func (e *Entry) winMessage() string   { return e.Name + " has won the game!" }
func (e *Entry) stealMessage() string { return e.Name + " has the shard!" }
