package round

// ShardState is either HeldShard or *DroppedShard.
type ShardState interface {
	isShardState()
}

type HeldShard struct {
	Holder ParticipantID
}

// DroppedShard is the shard lying in the world. Restore is the cell it
// overwrote.
type DroppedShard struct {
	Pos                  Vec3i
	Restore              Cell
	InvulnerabilityTicks int
}

func (HeldShard) isShardState()     {}
func (*DroppedShard) isShardState() {}

func (d *DroppedShard) Tick() {
	if d.InvulnerabilityTicks > 0 {
		d.InvulnerabilityTicks--
	}
}

// CanPickUp reports whether a participant standing at pos takes the shard.
func (d *DroppedShard) CanPickUp(pos Vec3i) bool {
	return d.InvulnerabilityTicks <= 0 && pos == d.Pos
}

type landingSurface interface {
	QueryCell(pos Vec3i) (Cell, error)
	IsLandable(c Cell, pos Vec3i) bool
}

// FindDropPos scans down from start to the first landable cell, stopping at
// the world floor (y=0). Cells that cannot be queried are treated as not
// landable.
func FindDropPos(w landingSurface, start Vec3i) Vec3i {
	pos := start
	if pos.Y < 0 {
		pos.Y = 0
	}
	for {
		if pos.Y == 0 {
			return pos
		}
		c, err := w.QueryCell(pos)
		if err == nil && w.IsLandable(c, pos) {
			return pos
		}
		pos = pos.Down()
	}
}
