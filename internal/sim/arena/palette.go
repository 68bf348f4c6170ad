package arena

import modelpkg "shardthief.gg/internal/sim/round/model"

const (
	Air   modelpkg.Cell = 0
	Stone modelpkg.Cell = 1
	Grass modelpkg.Cell = 2
	Plank modelpkg.Cell = 3
	// Shard marks the dropped shard. It is not solid.
	Shard modelpkg.Cell = 4
)

var palette = []string{"AIR", "STONE", "GRASS", "PLANK", "SHARD"}

func CellName(c modelpkg.Cell) string {
	if int(c) >= len(palette) {
		return "UNKNOWN"
	}
	return palette[c]
}

func IsSolid(c modelpkg.Cell) bool {
	switch c {
	case Stone, Grass, Plank:
		return true
	}
	return false
}

func IsPassable(c modelpkg.Cell) bool {
	return c == Air || c == Shard
}
