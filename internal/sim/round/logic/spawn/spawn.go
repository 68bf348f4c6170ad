package spawn

import (
	"shardthief.gg/internal/sim/round/logic/mathx"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

const (
	BaseDistance = 4
	MaxDistance  = 8
)

// Direction is a horizontal facing, numbered south, west, north, east.
type Direction int

const (
	South Direction = iota
	West
	North
	East
)

func DirectionFromIndex(index int) Direction {
	return Direction(mathx.Mod(index, 4))
}

// Offset is the unit step in this direction.
func (d Direction) Offset() modelpkg.Vec3i {
	switch d {
	case South:
		return modelpkg.Vec3i{Z: 1}
	case West:
		return modelpkg.Vec3i{X: -1}
	case North:
		return modelpkg.Vec3i{Z: -1}
	case East:
		return modelpkg.Vec3i{X: 1}
	}
	return modelpkg.Vec3i{}
}

func (d Direction) Opposite() Direction {
	return Direction(mathx.Mod(int(d)+2, 4))
}

// Yaw in degrees; 0 faces south (+z).
func (d Direction) Yaw() float64 {
	return float64(d) * 90
}

func (d Direction) String() string {
	switch d {
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	case North:
		return "NORTH"
	case East:
		return "EAST"
	}
	return "UNKNOWN"
}

// Distance from the centre for a slot index. Every fourth slot moves one
// block further out, capped at MaxDistance.
func Distance(index int) int {
	if index < 0 {
		index = 0
	}
	return mathx.MinInt(index/4+BaseDistance, MaxDistance)
}

// Slot returns the spawn position and yaw for a slot index. The position sits
// behind the centre relative to the slot's direction, so the yaw looks back at
// the centre.
func Slot(center modelpkg.Vec3i, y int, index int) (modelpkg.Vec3i, float64) {
	dir := DirectionFromIndex(index)
	step := dir.Opposite().Offset()
	dist := Distance(index)
	pos := modelpkg.Vec3i{
		X: center.X + step.X*dist,
		Y: y,
		Z: center.Z + step.Z*dist,
	}
	return pos, dir.Yaw()
}
