package countdown

import modelpkg "shardthief.gg/internal/sim/round/model"

// IntervalTicks is the number of ticks between count decrements while the
// shard is held.
const IntervalTicks = 35

// UrgentThreshold is the highest count announced with a title.
const UrgentThreshold = 5

func TitleColor(count int) modelpkg.Color {
	switch {
	case count <= 1:
		return modelpkg.ColorRed
	case count <= 3:
		return modelpkg.ColorGold
	default:
		return modelpkg.ColorYellow
	}
}

func IsUrgent(count int) bool {
	return count > 0 && count <= UrgentThreshold
}

// HoldPercent is the bar fill: 1 with no holder, else the holder's remaining
// share of the starting count.
func HoldPercent(held bool, count, starting int) float64 {
	if !held || starting <= 0 {
		return 1
	}
	p := float64(count) / float64(starting)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// RaiseToFloor applies the restart floor to a dispossessed holder's count.
func RaiseToFloor(count, floor int) int {
	if count < floor {
		return floor
	}
	return count
}
