package arena

import (
	"errors"
	"fmt"
	"sort"

	"shardthief.gg/internal/sim/round/logic/mathx"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

// MaxY is the build height limit.
const MaxY = 255

var ErrOutOfBounds = errors.New("position out of bounds")

// Grid is a sparse voxel store. Unset cells are air.
type Grid struct {
	center modelpkg.Vec3i
	// bound is the horizontal half-extent that can hold blocks.
	bound int
	cells map[modelpkg.Vec3i]modelpkg.Cell
}

func NewGrid(center modelpkg.Vec3i, bound int) *Grid {
	return &Grid{center: center, bound: bound, cells: map[modelpkg.Vec3i]modelpkg.Cell{}}
}

func (g *Grid) InBounds(p modelpkg.Vec3i) bool {
	if p.Y < 0 || p.Y > MaxY {
		return false
	}
	return mathx.AbsInt(p.X-g.center.X) <= g.bound && mathx.AbsInt(p.Z-g.center.Z) <= g.bound
}

func (g *Grid) Get(p modelpkg.Vec3i) (modelpkg.Cell, error) {
	if !g.InBounds(p) {
		return Air, fmt.Errorf("get %v: %w", p.ToArray(), ErrOutOfBounds)
	}
	return g.cells[p], nil
}

// At is Get without the bounds error.
func (g *Grid) At(p modelpkg.Vec3i) modelpkg.Cell {
	return g.cells[p]
}

func (g *Grid) Set(p modelpkg.Vec3i, c modelpkg.Cell) error {
	if !g.InBounds(p) {
		return fmt.Errorf("set %v: %w", p.ToArray(), ErrOutOfBounds)
	}
	if c == Air {
		delete(g.cells, p)
		return nil
	}
	g.cells[p] = c
	return nil
}

// Keys returns occupied positions in x, z, y order.
func (g *Grid) Keys() []modelpkg.Vec3i {
	keys := make([]modelpkg.Vec3i, 0, len(g.cells))
	for k := range g.cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		if keys[i].Z != keys[j].Z {
			return keys[i].Z < keys[j].Z
		}
		return keys[i].Y < keys[j].Y
	})
	return keys
}

// GeneratePlatform lays a square floor of radius r at floorY with a grass
// ring at the edge and four plank pillars on the diagonals.
func (g *Grid) GeneratePlatform(r, floorY int) {
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			p := modelpkg.Vec3i{X: g.center.X + dx, Y: floorY, Z: g.center.Z + dz}
			c := Stone
			if mathx.AbsInt(dx) == r || mathx.AbsInt(dz) == r {
				c = Grass
			}
			_ = g.Set(p, c)
		}
	}
	pillar := r - 2
	if pillar <= 0 {
		return
	}
	for _, d := range [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		for h := 1; h <= 3; h++ {
			_ = g.Set(modelpkg.Vec3i{X: g.center.X + d[0]*pillar, Y: floorY + h, Z: g.center.Z + d[1]*pillar}, Plank)
		}
	}
}
