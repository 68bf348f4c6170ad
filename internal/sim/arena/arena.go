package arena

import (
	"errors"
	"sort"

	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/round"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrSpectator     = errors.New("spectators cannot act")
)

type Spec struct {
	Center modelpkg.Vec3i
	Radius int
	FloorY int
	ShardY int
	SpawnY int
	// KitArrows is the arrow count of the base loadout.
	KitArrows int
}

type Player struct {
	ID   modelpkg.ParticipantID
	Name string
	Pos  modelpkg.Vec3i
	Yaw  float64
	Mode modelpkg.GameMode

	Inventory map[string]int
	Effects   map[modelpkg.Effect]*TimedEffect
	Deaths    int

	events []protocol.Event
}

type TimedEffect struct {
	Amplifier      int
	RemainingTicks int
}

// Arena is an in-memory host for one round: the voxel grid, the connected
// players and the hold bar.
type Arena struct {
	spec Spec
	grid *Grid

	players map[modelpkg.ParticipantID]*Player
	order   []modelpkg.ParticipantID

	bar         Bar
	projectiles map[modelpkg.EntityRef]*projectile
	nextEntity  uint64

	tick uint64
}

var (
	_ round.World        = (*Arena)(nil)
	_ round.Presentation = (*Arena)(nil)
	_ round.Inventory    = (*Arena)(nil)
)

func New(spec Spec) *Arena {
	if spec.Radius <= 0 {
		spec.Radius = 12
	}
	a := &Arena{
		spec:        spec,
		grid:        NewGrid(spec.Center, spec.Radius+8),
		players:     map[modelpkg.ParticipantID]*Player{},
		projectiles: map[modelpkg.EntityRef]*projectile{},
		bar:         Bar{Percent: 1, viewers: map[modelpkg.ParticipantID]bool{}},
	}
	a.grid.GeneratePlatform(spec.Radius, spec.FloorY)
	return a
}

func (a *Arena) Spec() Spec   { return a.spec }
func (a *Arena) Grid() *Grid  { return a.grid }
func (a *Arena) Tick() uint64 { return a.tick }

// Map describes the arena geometry to the round.
func (a *Arena) Map() round.Map {
	return round.Map{Center: a.spec.Center, ShardY: a.spec.ShardY, SpawnY: a.spec.SpawnY, Marker: Shard}
}

// AddPlayer places a new player at the centre of the arena in spectator mode.
func (a *Arena) AddPlayer(p modelpkg.Participant) {
	if _, ok := a.players[p.ID]; ok {
		return
	}
	start := modelpkg.Vec3i{X: a.spec.Center.X, Y: a.spec.SpawnY, Z: a.spec.Center.Z}
	pos, _ := a.settle(start)
	a.players[p.ID] = &Player{
		ID:        p.ID,
		Name:      p.Name,
		Pos:       pos,
		Mode:      modelpkg.ModeSpectator,
		Inventory: map[string]int{},
		Effects:   map[modelpkg.Effect]*TimedEffect{},
	}
	a.order = append(a.order, p.ID)
}

func (a *Arena) RemovePlayer(id modelpkg.ParticipantID) {
	if _, ok := a.players[id]; !ok {
		return
	}
	delete(a.players, id)
	for i, oid := range a.order {
		if oid == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *Arena) Player(id modelpkg.ParticipantID) (Player, bool) {
	p := a.players[id]
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// Players lists players in join order.
func (a *Arena) Players() []Player {
	out := make([]Player, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.players[id])
	}
	return out
}

func (a *Arena) Participants() []modelpkg.Participant {
	out := make([]modelpkg.Participant, 0, len(a.order))
	for _, id := range a.order {
		p := a.players[id]
		out = append(out, modelpkg.Participant{ID: p.ID, Name: p.Name})
	}
	return out
}

// Step advances arena-owned timers: effects and stray projectiles.
func (a *Arena) Step() {
	a.tick++
	for _, id := range a.order {
		p := a.players[id]
		for e, te := range p.Effects {
			te.RemainingTicks--
			if te.RemainingTicks <= 0 {
				delete(p.Effects, e)
			}
		}
	}
	a.expireProjectiles()
}

// DrainEvents returns and clears the queued events of a player.
func (a *Arena) DrainEvents(id modelpkg.ParticipantID) []protocol.Event {
	p := a.players[id]
	if p == nil || len(p.events) == 0 {
		return []protocol.Event{}
	}
	out := p.events
	p.events = nil
	return out
}

func (a *Arena) push(id modelpkg.ParticipantID, ev protocol.Event) {
	p := a.players[id]
	if p == nil {
		return
	}
	ev["t"] = a.tick
	p.events = append(p.events, ev)
}

func (a *Arena) pushAll(ev protocol.Event) {
	for _, id := range a.order {
		cp := make(protocol.Event, len(ev)+1)
		for k, v := range ev {
			cp[k] = v
		}
		a.push(id, cp)
	}
}

// settle drops a position onto the ground below it. ok is false when there
// is no ground in the column.
func (a *Arena) settle(p modelpkg.Vec3i) (modelpkg.Vec3i, bool) {
	if p.Y > MaxY {
		p.Y = MaxY
	}
	for p.Y < MaxY && !IsPassable(a.grid.At(p)) {
		p.Y++
	}
	for y := p.Y; y > 0; y-- {
		q := modelpkg.Vec3i{X: p.X, Y: y, Z: p.Z}
		if IsPassable(a.grid.At(q)) && IsSolid(a.grid.At(q.Down())) {
			return q, true
		}
	}
	return modelpkg.Vec3i{X: p.X, Y: 0, Z: p.Z}, false
}

func sortedEffects(m map[modelpkg.Effect]*TimedEffect) []string {
	out := make([]string, 0, len(m))
	for e := range m {
		out = append(out, string(e))
	}
	sort.Strings(out)
	return out
}

func (p Player) EffectNames() []string { return sortedEffects(p.Effects) }
