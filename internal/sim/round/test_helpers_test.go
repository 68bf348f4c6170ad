package round

import (
	"errors"
	"fmt"
	"testing"
)

const (
	cellAir    Cell = 0
	cellStone  Cell = 1
	cellMarker Cell = 9
)

var errFakeWorld = errors.New("fake world failure")

type teleportCall struct {
	ID  ParticipantID
	Pos Vec3i
	Yaw float64
}

type effectCall struct {
	ID        ParticipantID
	Effect    Effect
	Duration  int
	Amplifier int
}

type fakeWorld struct {
	floorY    int
	cells     map[Vec3i]Cell
	positions map[ParticipantID]Vec3i
	modes     map[ParticipantID]GameMode

	teleports  []teleportCall
	sounds     []Sound
	messages   []string
	sent       map[ParticipantID][]string
	titles     []Title
	sentTitles map[ParticipantID][]Title
	effects    []effectCall
	destroyed  []EntityRef

	failQuery bool
	failSet   bool
}

func newFakeWorld(floorY int) *fakeWorld {
	return &fakeWorld{
		floorY:     floorY,
		cells:      map[Vec3i]Cell{},
		positions:  map[ParticipantID]Vec3i{},
		modes:      map[ParticipantID]GameMode{},
		sent:       map[ParticipantID][]string{},
		sentTitles: map[ParticipantID][]Title{},
	}
}

func (w *fakeWorld) cellAt(p Vec3i) Cell {
	if c, ok := w.cells[p]; ok {
		return c
	}
	if p.Y == w.floorY {
		return cellStone
	}
	return cellAir
}

func (w *fakeWorld) QueryCell(p Vec3i) (Cell, error) {
	if w.failQuery {
		return 0, errFakeWorld
	}
	return w.cellAt(p), nil
}

func (w *fakeWorld) SetCell(p Vec3i, c Cell) error {
	if w.failSet {
		return errFakeWorld
	}
	w.cells[p] = c
	return nil
}

func (w *fakeWorld) IsLandable(c Cell, p Vec3i) bool {
	below := w.cellAt(p.Down())
	return c == cellAir && below != cellAir && below != cellMarker
}

func (w *fakeWorld) Position(id ParticipantID) (Vec3i, bool) {
	p, ok := w.positions[id]
	return p, ok
}

func (w *fakeWorld) SetGameMode(id ParticipantID, m GameMode) { w.modes[id] = m }

func (w *fakeWorld) Teleport(id ParticipantID, p Vec3i, yaw float64) {
	w.positions[id] = p
	w.teleports = append(w.teleports, teleportCall{ID: id, Pos: p, Yaw: yaw})
}

func (w *fakeWorld) PlaySoundAt(_ Vec3i, s Sound, _, _ float32) { w.sounds = append(w.sounds, s) }
func (w *fakeWorld) BroadcastSound(s Sound, _, _ float32)       { w.sounds = append(w.sounds, s) }
func (w *fakeWorld) BroadcastMessage(text string)               { w.messages = append(w.messages, text) }
func (w *fakeWorld) SendMessage(id ParticipantID, text string)  { w.sent[id] = append(w.sent[id], text) }
func (w *fakeWorld) BroadcastTitle(t Title)                     { w.titles = append(w.titles, t) }
func (w *fakeWorld) SendTitle(id ParticipantID, t Title) {
	w.sentTitles[id] = append(w.sentTitles[id], t)
}

func (w *fakeWorld) ApplyTimedEffect(id ParticipantID, e Effect, d, amp int) {
	w.effects = append(w.effects, effectCall{ID: id, Effect: e, Duration: d, Amplifier: amp})
}

func (w *fakeWorld) DestroyEntity(ref EntityRef) { w.destroyed = append(w.destroyed, ref) }

func (w *fakeWorld) countSound(s Sound) int {
	n := 0
	for _, got := range w.sounds {
		if got == s {
			n++
		}
	}
	return n
}

type fakePresentation struct {
	percents  []float64
	viewers   map[ParticipantID]bool
	teardowns int
}

func (p *fakePresentation) UpdateHoldPercent(f float64)        { p.percents = append(p.percents, f) }
func (p *fakePresentation) AddParticipant(id ParticipantID)    { p.viewers[id] = true }
func (p *fakePresentation) RemoveParticipant(id ParticipantID) { delete(p.viewers, id) }
func (p *fakePresentation) Teardown()                          { p.teardowns++ }

type invCall struct {
	Kind string
	ID   ParticipantID
	Max  int
}

type fakeInventory struct {
	calls []invCall
}

func (i *fakeInventory) Clear(id ParticipantID) {
	i.calls = append(i.calls, invCall{Kind: "clear", ID: id})
}
func (i *fakeInventory) GrantBaseLoadout(id ParticipantID) {
	i.calls = append(i.calls, invCall{Kind: "base", ID: id})
}
func (i *fakeInventory) GrantShardLoadout(id ParticipantID) {
	i.calls = append(i.calls, invCall{Kind: "shard", ID: id})
}
func (i *fakeInventory) RestockConsumable(id ParticipantID, max int) {
	i.calls = append(i.calls, invCall{Kind: "restock", ID: id, Max: max})
}

func (i *fakeInventory) count(kind string, id ParticipantID) int {
	n := 0
	for _, c := range i.calls {
		if c.Kind == kind && c.ID == id {
			n++
		}
	}
	return n
}

func (i *fakeInventory) last(id ParticipantID) string {
	for k := len(i.calls) - 1; k >= 0; k-- {
		if i.calls[k].ID == id && i.calls[k].Kind != "restock" {
			return i.calls[k].Kind
		}
	}
	return ""
}

type fakeRecorder struct {
	transfers []Transfer
	finishes  []Result
}

func (r *fakeRecorder) RecordTransfer(t Transfer) { r.transfers = append(r.transfers, t) }
func (r *fakeRecorder) RecordFinish(res Result)   { r.finishes = append(r.finishes, res) }

type testRound struct {
	C    *Controller
	W    *fakeWorld
	Pres *fakePresentation
	Inv  *fakeInventory
	Rec  *fakeRecorder
}

func testMap() Map {
	return Map{Center: Vec3i{X: 0, Y: 0, Z: 0}, ShardY: 64, SpawnY: 64, Marker: cellMarker}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StartingCount = 10
	cfg.RestartCount = 5
	cfg.ShardInvulnerabilityTicks = 5
	cfg.SpeedAmplifier = 2
	cfg.KitRestockInterval = 200
	cfg.MaxConsumable = 3
	return cfg
}

func newTestRound(t *testing.T, cfg Config, n int) *testRound {
	t.Helper()
	tr := &testRound{
		W:    newFakeWorld(63),
		Pres: &fakePresentation{viewers: map[ParticipantID]bool{}},
		Inv:  &fakeInventory{},
		Rec:  &fakeRecorder{},
	}
	ps := make([]Participant, 0, n)
	for i := 1; i <= n; i++ {
		ps = append(ps, Participant{ID: ParticipantID(fmt.Sprintf("P%d", i)), Name: fmt.Sprintf("player%d", i)})
	}
	c, err := New(cfg, testMap(), Ports{World: tr.W, Presentation: tr.Pres, Inventory: tr.Inv, Recorder: tr.Rec}, ps, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr.C = c
	c.Open()
	return tr
}

// hold makes id the holder by walking them onto the dropped shard and ticking
// until the pickup happens.
func (tr *testRound) hold(t *testing.T, id ParticipantID) {
	t.Helper()
	d, ok := tr.C.Shard().(*DroppedShard)
	if !ok {
		t.Fatalf("hold: shard is not dropped")
	}
	tr.W.positions[id] = d.Pos
	for i := 0; i <= d.InvulnerabilityTicks+1; i++ {
		tr.C.OnTick()
		if h, ok := tr.C.Holder(); ok {
			if h != id {
				t.Fatalf("hold: expected %s to pick up, got %s", id, h)
			}
			return
		}
	}
	t.Fatalf("hold: %s never picked up the shard", id)
}

func (tr *testRound) ticks(n int) {
	for i := 0; i < n; i++ {
		tr.C.OnTick()
	}
}

func assertShardInvariant(t *testing.T, c *Controller) {
	t.Helper()
	switch s := c.Shard().(type) {
	case HeldShard:
		if _, ok := c.Entry(s.Holder); !ok {
			t.Fatalf("holder %s is not a participant", s.Holder)
		}
	case *DroppedShard:
		if s == nil {
			t.Fatalf("nil dropped shard")
		}
	default:
		t.Fatalf("unexpected shard state %T", s)
	}
}
