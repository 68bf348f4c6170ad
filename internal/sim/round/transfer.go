package round

import (
	"fmt"

	"shardthief.gg/internal/sim/round/logic/countdown"
)

// OnDamage applies the combat rule for a hit on victim. Default damage is
// always suppressed, so the result is always true.
func (c *Controller) OnDamage(victim, attacker ParticipantID, src DamageSource) bool {
	if c.closed {
		return true
	}
	c.tryTransfer(victim, attacker, src)
	return true
}

func (c *Controller) tryTransfer(victim, attacker ParticipantID, src DamageSource) {
	held, ok := c.shard.(HeldShard)
	if !ok || attacker == "" {
		return
	}
	if victim != held.Holder || attacker == held.Holder {
		return
	}
	holder := c.entries[held.Holder]
	thief := c.entries[attacker]
	if holder == nil || thief == nil {
		return
	}

	if src.Projectile {
		c.dropShard(holder, "projectile")
		if c.cfg.DestroyProjectile && src.Entity != "" {
			c.world.DestroyEntity(src.Entity)
		}
		return
	}
	if !holder.CanBeStolen() {
		return
	}

	switch c.cfg.StealPolicy {
	case StealDropPickup:
		c.dropShard(holder, "melee")
		c.pickUp(thief, TransferSteal, "melee")
	default:
		c.stealShard(holder, thief)
	}
}

// stealShard moves the shard from holder to thief without materializing it
// in the world.
func (c *Controller) stealShard(holder, thief *Entry) {
	c.release(holder)
	c.take(thief)
	c.announceTitle(Title{Slot: SlotActionBar, Text: thief.stealMessage(), Color: ColorWhite})

	pos, _ := c.world.Position(thief.ID)
	c.record(Transfer{Kind: TransferSteal, From: holder.ID, To: thief.ID, Pos: pos.ToArray(), Reason: "melee"})
}

func (c *Controller) pickUp(e *Entry, kind TransferKind, reason string) {
	d, ok := c.shard.(*DroppedShard)
	if !ok {
		c.log.Printf("pickup by %s: %v", e.ID, fmt.Errorf("%w: shard is not dropped", ErrInvalidTransition))
		return
	}
	c.restoreCell(d)
	c.take(e)

	pos, ok := c.world.Position(e.ID)
	if !ok {
		pos = d.Pos
	}
	c.world.PlaySoundAt(pos, SoundPickup, 1, 1)
	c.announceTitle(Title{Slot: SlotActionBar, Text: e.stealMessage(), Color: ColorWhite})
	c.record(Transfer{Kind: kind, To: e.ID, Pos: d.Pos.ToArray(), Reason: reason})
}

func (c *Controller) dropShard(holder *Entry, reason string) {
	held, ok := c.shard.(HeldShard)
	if !ok || held.Holder != holder.ID {
		c.log.Printf("drop by %s: %v", holder.ID, fmt.Errorf("%w: %s is not the holder", ErrInvalidTransition, holder.ID))
		return
	}
	start, ok := c.world.Position(holder.ID)
	if !ok {
		c.log.Printf("drop by %s: %v; dropping at shard spawn", holder.ID, ErrUnknownParticipant)
		start = c.m.ShardSpawn()
	}
	pos := FindDropPos(c.world, start)
	c.placeShard(pos)
	c.release(holder)

	c.world.PlaySoundAt(pos, SoundDrop, 1, 1)
	c.record(Transfer{Kind: TransferDrop, From: holder.ID, Pos: pos.ToArray(), Reason: reason})
}

// take makes e the holder.
func (c *Controller) take(e *Entry) {
	c.shard = HeldShard{Holder: e.ID}
	e.SetInvulnerability(c.cfg.ShardInvulnerabilityTicks)
	c.ticksUntilCount = countdown.IntervalTicks

	c.inv.Clear(e.ID)
	c.inv.GrantShardLoadout(e.ID)
	c.applyStealSpeed(e.ID)
}

// release returns a former holder to the base kit and applies the restart floor.
func (c *Controller) release(e *Entry) {
	c.inv.Clear(e.ID)
	c.inv.GrantBaseLoadout(e.ID)
	e.Count = countdown.RaiseToFloor(e.Count, c.cfg.RestartCount)
	c.ticksUntilCount = countdown.IntervalTicks
}

func (c *Controller) placeShard(pos Vec3i) {
	restore, err := c.world.QueryCell(pos)
	if err != nil {
		c.log.Printf("query cell %v: %v", pos.ToArray(), err)
	}
	c.shard = &DroppedShard{
		Pos:                  pos,
		Restore:              restore,
		InvulnerabilityTicks: c.cfg.ShardInvulnerabilityTicks,
	}
	if err := c.world.SetCell(pos, c.m.Marker); err != nil {
		c.log.Printf("place shard at %v: %v", pos.ToArray(), err)
	}
}

func (c *Controller) restoreCell(d *DroppedShard) {
	if err := c.world.SetCell(d.Pos, d.Restore); err != nil {
		c.log.Printf("restore cell %v: %v", d.Pos.ToArray(), err)
	}
}

func (c *Controller) applyStealSpeed(id ParticipantID) {
	if c.cfg.SpeedAmplifier <= 0 {
		return
	}
	c.world.ApplyTimedEffect(id, EffectSpeed, c.cfg.ShardInvulnerabilityTicks*2, c.cfg.SpeedAmplifier)
}

func (c *Controller) record(t Transfer) {
	if c.rec == nil {
		return
	}
	t.Tick = c.tick
	c.rec.RecordTransfer(t)
}
