package round

import "testing"

func TestOnDamage_ProjectileAlwaysDrops(t *testing.T) {
	tr := newTestRound(t, testConfig(), 2)
	tr.hold(t, "P1")
	if e, _ := tr.C.Entry("P1"); e.CanBeStolen() {
		t.Fatalf("expected fresh holder to be invulnerable")
	}

	if !tr.C.OnDamage("P1", "P2", DamageSource{Projectile: true, Entity: "arrow-1"}) {
		t.Fatalf("expected damage intercepted")
	}
	d, ok := tr.C.Shard().(*DroppedShard)
	if !ok {
		t.Fatalf("expected projectile to force a drop, got %T", tr.C.Shard())
	}
	if d.Pos != (Vec3i{X: 0, Y: 64, Z: 0}) {
		t.Fatalf("expected drop at holder cell, got %+v", d.Pos)
	}
	if d.InvulnerabilityTicks != 5 {
		t.Fatalf("expected armed drop invulnerability, got %d", d.InvulnerabilityTicks)
	}
	if tr.W.cellAt(d.Pos) != cellMarker {
		t.Fatalf("expected marker at drop position")
	}
	if len(tr.W.destroyed) != 1 || tr.W.destroyed[0] != "arrow-1" {
		t.Fatalf("expected projectile destroyed, got %+v", tr.W.destroyed)
	}
	if tr.Inv.last("P1") != "base" {
		t.Fatalf("expected former holder back on base loadout, got %q", tr.Inv.last("P1"))
	}
	if tr.W.countSound(SoundDrop) != 1 {
		t.Fatalf("expected drop sound")
	}
	assertShardInvariant(t, tr.C)
}

func TestOnDamage_ProjectileKeptWhenPolicyOff(t *testing.T) {
	cfg := testConfig()
	cfg.DestroyProjectile = false
	tr := newTestRound(t, cfg, 2)
	tr.hold(t, "P1")
	tr.C.OnDamage("P1", "P2", DamageSource{Projectile: true, Entity: "arrow-1"})
	if _, ok := tr.C.Shard().(*DroppedShard); !ok {
		t.Fatalf("expected drop")
	}
	if len(tr.W.destroyed) != 0 {
		t.Fatalf("expected projectile kept, got %+v", tr.W.destroyed)
	}
}

func TestOnDamage_MeleeRespectsInvulnerability(t *testing.T) {
	tr := newTestRound(t, testConfig(), 2)
	tr.hold(t, "P1")

	tr.C.OnDamage("P1", "P2", DamageSource{})
	if h, _ := tr.C.Holder(); h != "P1" {
		t.Fatalf("expected hit absorbed while invulnerable, holder=%q", h)
	}
	if len(tr.Rec.transfers) != 1 {
		t.Fatalf("expected no transfer record, got %+v", tr.Rec.transfers)
	}

	tr.ticks(5)
	tr.C.OnDamage("P1", "P2", DamageSource{})
	h, _ := tr.C.Holder()
	if h != "P2" {
		t.Fatalf("expected P2 to steal, holder=%q", h)
	}
	e, _ := tr.C.Entry("P2")
	if e.InvulnerabilityTicks != 5 {
		t.Fatalf("expected thief invulnerability 5, got %d", e.InvulnerabilityTicks)
	}
	if tr.Inv.last("P2") != "shard" || tr.Inv.last("P1") != "base" {
		t.Fatalf("unexpected loadouts: P1=%q P2=%q", tr.Inv.last("P1"), tr.Inv.last("P2"))
	}
	if len(tr.W.effects) != 2 || tr.W.effects[1].ID != "P2" {
		t.Fatalf("expected speed re-applied to thief, got %+v", tr.W.effects)
	}
	last := tr.Rec.transfers[len(tr.Rec.transfers)-1]
	if last.Kind != TransferSteal || last.From != "P1" || last.To != "P2" {
		t.Fatalf("unexpected steal record: %+v", last)
	}
	if tr.W.cellAt(Vec3i{X: 0, Y: 64, Z: 0}) == cellMarker {
		t.Fatalf("direct steal must not place a marker")
	}
	assertShardInvariant(t, tr.C)
}

func TestOnDamage_RestartFloor(t *testing.T) {
	tr := newTestRound(t, testConfig(), 2)
	tr.hold(t, "P1")
	tr.C.entries["P1"].Count = 3

	tr.C.OnDamage("P1", "P2", DamageSource{Projectile: true})
	e, _ := tr.C.Entry("P1")
	if e.Count != 5 {
		t.Fatalf("expected count raised to 5, got %d", e.Count)
	}
}

func TestOnDamage_RestartFloorKeepsHigherCount(t *testing.T) {
	tr := newTestRound(t, testConfig(), 2)
	tr.hold(t, "P1")
	tr.C.entries["P1"].Count = 8
	tr.ticks(5)

	tr.C.OnDamage("P1", "P2", DamageSource{})
	e, _ := tr.C.Entry("P1")
	if e.Count != 8 {
		t.Fatalf("expected count kept at 8, got %d", e.Count)
	}
}

func TestOnDamage_IgnoredHits(t *testing.T) {
	tr := newTestRound(t, testConfig(), 3)

	// No holder yet.
	tr.C.OnDamage("P1", "P2", DamageSource{})
	if _, ok := tr.C.Shard().(*DroppedShard); !ok {
		t.Fatalf("expected shard still dropped")
	}

	tr.hold(t, "P1")
	tr.ticks(5)
	cases := []struct {
		victim, attacker ParticipantID
	}{
		{"P2", "P3"},    // victim is not the holder
		{"P1", "P1"},    // self damage
		{"P1", ""},      // environment
		{"P1", "ghost"}, // attacker not in the round
	}
	for _, c := range cases {
		if !tr.C.OnDamage(c.victim, c.attacker, DamageSource{}) {
			t.Fatalf("expected damage intercepted for %+v", c)
		}
		if h, _ := tr.C.Holder(); h != "P1" {
			t.Fatalf("%+v changed the holder to %q", c, h)
		}
	}
}

func TestOnDamage_DropPickupPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.StealPolicy = StealDropPickup
	tr := newTestRound(t, cfg, 2)
	tr.hold(t, "P1")
	tr.W.positions["P1"] = Vec3i{X: 3, Y: 64, Z: 3}
	tr.W.positions["P2"] = Vec3i{X: 4, Y: 64, Z: 3}
	tr.ticks(5)

	tr.C.OnDamage("P1", "P2", DamageSource{})
	if h, _ := tr.C.Holder(); h != "P2" {
		t.Fatalf("expected P2 holder, got %q", h)
	}
	if tr.W.cellAt(Vec3i{X: 3, Y: 64, Z: 3}) != cellAir {
		t.Fatalf("expected the intermediate marker restored")
	}
	n := len(tr.Rec.transfers)
	if n < 2 || tr.Rec.transfers[n-2].Kind != TransferDrop || tr.Rec.transfers[n-1].Kind != TransferSteal {
		t.Fatalf("expected drop then steal records, got %+v", tr.Rec.transfers)
	}
	if tr.W.countSound(SoundDrop) != 1 || tr.W.countSound(SoundPickup) != 2 {
		t.Fatalf("unexpected sounds: %+v", tr.W.sounds)
	}
	assertShardInvariant(t, tr.C)
}

func TestOnDamage_AfterCloseIgnored(t *testing.T) {
	tr := newTestRound(t, testConfig(), 2)
	tr.hold(t, "P1")
	tr.ticks(5)
	tr.C.OnClose()
	if !tr.C.OnDamage("P1", "P2", DamageSource{}) {
		t.Fatalf("expected intercepted")
	}
	if h, _ := tr.C.Holder(); h != "P1" {
		t.Fatalf("expected no transfer after close")
	}
}

func TestInvalidTransition_IsNoop(t *testing.T) {
	tr := newTestRound(t, testConfig(), 2)
	tr.hold(t, "P1")
	// Pickup while held does nothing.
	tr.C.pickUp(tr.C.entries["P2"], TransferPickup, "")
	if h, _ := tr.C.Holder(); h != "P1" {
		t.Fatalf("expected holder unchanged, got %q", h)
	}
	// Drop by a non-holder does nothing.
	tr.C.dropShard(tr.C.entries["P2"], "test")
	if _, ok := tr.C.Shard().(HeldShard); !ok {
		t.Fatalf("expected shard still held")
	}
}
