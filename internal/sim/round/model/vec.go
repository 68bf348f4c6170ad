package model

import "shardthief.gg/internal/sim/round/logic/mathx"

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Down() Vec3i { return Vec3i{X: v.X, Y: v.Y - 1, Z: v.Z} }

// Chebyshev distance; used for reach checks.
func Chebyshev(a, b Vec3i) int {
	d := mathx.AbsInt(a.X - b.X)
	if dy := mathx.AbsInt(a.Y - b.Y); dy > d {
		d = dy
	}
	if dz := mathx.AbsInt(a.Z - b.Z); dz > d {
		d = dz
	}
	return d
}
