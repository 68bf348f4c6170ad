package arena

import (
	"errors"
	"testing"

	"shardthief.gg/internal/sim/round"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

func testSpec() Spec {
	return Spec{Radius: 12, FloorY: 63, ShardY: 64, SpawnY: 65, KitArrows: 3}
}

func newTestArena(t *testing.T, n int) *Arena {
	t.Helper()
	a := New(testSpec())
	for i := 1; i <= n; i++ {
		id := modelpkg.ParticipantID("P" + string(rune('0'+i)))
		a.AddPlayer(modelpkg.Participant{ID: id, Name: "player" + string(rune('0'+i))})
	}
	return a
}

func mustPlayer(t *testing.T, a *Arena, id modelpkg.ParticipantID) Player {
	t.Helper()
	p, ok := a.Player(id)
	if !ok {
		t.Fatalf("missing player %s", id)
	}
	return p
}

func TestAddPlayer_SettlesOnFloorAsSpectator(t *testing.T) {
	a := newTestArena(t, 1)
	p := mustPlayer(t, a, "P1")
	if p.Pos != (modelpkg.Vec3i{Y: 64}) {
		t.Fatalf("expected spawn on floor at y=64, got %+v", p.Pos)
	}
	if p.Mode != modelpkg.ModeSpectator {
		t.Fatalf("expected spectator, got %s", p.Mode)
	}
}

func TestIsLandable(t *testing.T) {
	a := New(testSpec())
	if !a.IsLandable(Air, modelpkg.Vec3i{Y: 64}) {
		t.Fatalf("expected air above stone to be landable")
	}
	if a.IsLandable(Air, modelpkg.Vec3i{Y: 65}) {
		t.Fatalf("expected air above air to not be landable")
	}
	if a.IsLandable(Stone, modelpkg.Vec3i{Y: 64}) {
		t.Fatalf("expected solid cell to not be landable")
	}
}

func TestQueryCell_OutOfBounds(t *testing.T) {
	a := New(testSpec())
	if _, err := a.QueryCell(modelpkg.Vec3i{X: 100, Y: 64}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if c, err := a.QueryCell(modelpkg.Vec3i{Y: 63}); err != nil || c != Stone {
		t.Fatalf("expected stone floor, got %d err=%v", c, err)
	}
}

func TestMove_StepLimitAndVoid(t *testing.T) {
	a := newTestArena(t, 1)
	if _, err := a.Move("P1", modelpkg.Vec3i{X: 2, Y: 64}); !errors.Is(err, ErrSpectator) {
		t.Fatalf("expected spectator move to fail, got %v", err)
	}
	a.SetGameMode("P1", modelpkg.ModeAdventure)

	res, err := a.Move("P1", modelpkg.Vec3i{X: 5, Y: 64})
	if err != nil || res.Died || res.Pos != (modelpkg.Vec3i{X: 5, Y: 64}) {
		t.Fatalf("unexpected move result %+v err=%v", res, err)
	}
	if _, err := a.Move("P1", modelpkg.Vec3i{X: 12, Y: 64}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected step limit, got %v", err)
	}

	a.Teleport("P1", modelpkg.Vec3i{X: 12, Y: 65}, 0)
	res, err = a.Move("P1", modelpkg.Vec3i{X: 15, Y: 64})
	if err != nil {
		t.Fatalf("void move: %v", err)
	}
	if !res.Died {
		t.Fatalf("expected void death")
	}
	p := mustPlayer(t, a, "P1")
	if p.Pos != (modelpkg.Vec3i{X: 12, Y: 64}) || p.Deaths != 1 {
		t.Fatalf("expected player kept at edge with one death, got %+v deaths=%d", p.Pos, p.Deaths)
	}
}

func TestMove_OutsideBounds(t *testing.T) {
	a := newTestArena(t, 1)
	a.SetGameMode("P1", modelpkg.ModeAdventure)
	a.Teleport("P1", modelpkg.Vec3i{X: 18, Y: 64}, 0)
	if _, err := a.Move("P1", modelpkg.Vec3i{X: 21, Y: 64}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestInventory_LoadoutsAndRestock(t *testing.T) {
	a := newTestArena(t, 1)
	a.GrantBaseLoadout("P1")
	p := mustPlayer(t, a, "P1")
	if p.Inventory[ItemSword] != 1 || p.Inventory[ItemBow] != 1 || p.Inventory[ItemArrow] != 3 {
		t.Fatalf("unexpected base loadout %v", p.Inventory)
	}

	a.RestockConsumable("P1", 3)
	if got := mustPlayer(t, a, "P1").Inventory[ItemArrow]; got != 3 {
		t.Fatalf("expected restock to respect cap, got %d", got)
	}
	p.Inventory[ItemArrow] = 1
	a.RestockConsumable("P1", 3)
	if got := mustPlayer(t, a, "P1").Inventory[ItemArrow]; got != 2 {
		t.Fatalf("expected one arrow restocked, got %d", got)
	}

	a.Clear("P1")
	a.GrantShardLoadout("P1")
	stacks := mustPlayer(t, a, "P1").ItemStacks()
	if len(stacks) != 1 || stacks[0].Item != ItemShard {
		t.Fatalf("expected only the shard, got %+v", stacks)
	}
	a.RestockConsumable("P1", 3)
	if got := mustPlayer(t, a, "P1").Inventory[ItemArrow]; got != 0 {
		t.Fatalf("expected no restock without a bow, got %d", got)
	}
}

func TestCombat_MeleeReachAndShoot(t *testing.T) {
	a := newTestArena(t, 2)
	for _, id := range []modelpkg.ParticipantID{"P1", "P2"} {
		a.SetGameMode(id, modelpkg.ModeAdventure)
		a.GrantBaseLoadout(id)
	}
	a.Teleport("P2", modelpkg.Vec3i{X: 5, Y: 64}, 0)

	if _, err := a.Melee("P1", "P2"); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected melee out of range, got %v", err)
	}
	if _, err := a.Melee("P1", "P1"); !errors.Is(err, ErrSelfTarget) {
		t.Fatalf("expected self target error, got %v", err)
	}
	a.Teleport("P2", modelpkg.Vec3i{X: 4, Y: 64}, 0)
	src, err := a.Melee("P1", "P2")
	if err != nil || src.Projectile {
		t.Fatalf("expected melee hit, got %+v err=%v", src, err)
	}

	src, err = a.Shoot("P1", "P2")
	if err != nil || !src.Projectile || src.Entity != "P1" {
		t.Fatalf("expected projectile P1, got %+v err=%v", src, err)
	}
	if got := mustPlayer(t, a, "P1").Inventory[ItemArrow]; got != 2 {
		t.Fatalf("expected arrow consumed, got %d", got)
	}
	a.DestroyEntity(src.Entity)
	if n := len(a.Projectiles()); n != 0 {
		t.Fatalf("expected destroyed projectile, got %d live", n)
	}

	mustPlayer(t, a, "P1").Inventory[ItemArrow] = 0
	if _, err := a.Shoot("P1", "P2"); !errors.Is(err, ErrNoArrow) {
		t.Fatalf("expected ErrNoArrow, got %v", err)
	}
}

func TestProjectiles_Expire(t *testing.T) {
	a := newTestArena(t, 2)
	for _, id := range []modelpkg.ParticipantID{"P1", "P2"} {
		a.SetGameMode(id, modelpkg.ModeAdventure)
		a.GrantBaseLoadout(id)
	}
	if _, err := a.Shoot("P1", "P2"); err != nil {
		t.Fatalf("shoot: %v", err)
	}
	for i := 0; i < ProjectileTTL-1; i++ {
		a.Step()
	}
	if n := len(a.Projectiles()); n != 1 {
		t.Fatalf("expected projectile alive before ttl, got %d", n)
	}
	a.Step()
	if n := len(a.Projectiles()); n != 0 {
		t.Fatalf("expected projectile expired, got %d", n)
	}
}

func TestEffects_DecayOnStep(t *testing.T) {
	a := newTestArena(t, 1)
	a.ApplyTimedEffect("P1", modelpkg.EffectSpeed, 2, 1)
	a.Step()
	if names := mustPlayer(t, a, "P1").EffectNames(); len(names) != 1 {
		t.Fatalf("expected effect after one step, got %v", names)
	}
	a.Step()
	if names := mustPlayer(t, a, "P1").EffectNames(); len(names) != 0 {
		t.Fatalf("expected effect gone, got %v", names)
	}
}

func TestEvents_BroadcastAndDrain(t *testing.T) {
	a := newTestArena(t, 2)
	a.BroadcastMessage("hello")
	a.SendTitle("P2", modelpkg.Title{Slot: modelpkg.SlotTitle, Text: "3"})
	if evs := a.DrainEvents("P1"); len(evs) != 1 || evs[0]["text"] != "hello" {
		t.Fatalf("unexpected P1 events %v", evs)
	}
	evs := a.DrainEvents("P2")
	if len(evs) != 2 || evs[1]["type"] != "TITLE" {
		t.Fatalf("unexpected P2 events %v", evs)
	}
	if evs := a.DrainEvents("P2"); evs == nil || len(evs) != 0 {
		t.Fatalf("expected empty non-nil drain, got %v", evs)
	}
}

func TestBar_Teardown(t *testing.T) {
	a := newTestArena(t, 1)
	a.AddParticipant("P1")
	a.UpdateHoldPercent(0.5)
	if !a.Bar().Sees("P1") || a.Bar().Percent != 0.5 {
		t.Fatalf("unexpected bar %+v", a.Bar())
	}
	a.Teardown()
	a.UpdateHoldPercent(0.1)
	a.AddParticipant("P1")
	if a.Bar().Sees("P1") || a.Bar().Percent != 0.5 {
		t.Fatalf("expected torn down bar to ignore updates, got %+v", a.Bar())
	}
}

func TestRound_PickupOnArena(t *testing.T) {
	a := newTestArena(t, 2)
	cfg := round.DefaultConfig()
	c, err := round.New(cfg, a.Map(), round.Ports{World: a, Presentation: a, Inventory: a}, a.Participants(), nil)
	if err != nil {
		t.Fatalf("round: %v", err)
	}
	if got := a.Grid().At(modelpkg.Vec3i{Y: 64}); got != Shard {
		t.Fatalf("expected shard marker at centre, got %s", CellName(got))
	}
	c.Open()
	if p := mustPlayer(t, a, "P1"); p.Pos != (modelpkg.Vec3i{Y: 64, Z: -4}) {
		t.Fatalf("expected slot 0 spawn, got %+v", p.Pos)
	}
	if p := mustPlayer(t, a, "P2"); p.Pos != (modelpkg.Vec3i{X: 4, Y: 64}) {
		t.Fatalf("expected slot 1 spawn, got %+v", p.Pos)
	}

	if _, err := a.Move("P1", modelpkg.Vec3i{Y: 64}); err != nil {
		t.Fatalf("move onto shard: %v", err)
	}
	for i := 0; i < cfg.ShardInvulnerabilityTicks; i++ {
		c.OnTick()
		a.Step()
	}
	if holder, ok := c.Holder(); !ok || holder != "P1" {
		t.Fatalf("expected P1 to hold the shard, got %q ok=%v", holder, ok)
	}
	if got := a.Grid().At(modelpkg.Vec3i{Y: 64}); got != Air {
		t.Fatalf("expected marker cleared on pickup, got %s", CellName(got))
	}
	p := mustPlayer(t, a, "P1")
	if p.Inventory[ItemShard] != 1 || p.Inventory[ItemSword] != 0 {
		t.Fatalf("expected shard loadout, got %v", p.Inventory)
	}
	if names := p.EffectNames(); len(names) != 1 || names[0] != string(modelpkg.EffectSpeed) {
		t.Fatalf("expected speed effect, got %v", names)
	}
}
