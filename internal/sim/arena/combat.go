package arena

import (
	"errors"
	"fmt"

	"shardthief.gg/internal/protocol"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

const (
	MeleeReach      = 4
	ProjectileRange = 32
	ProjectileTTL   = 40
	// MaxStep bounds a single MOVE (Chebyshev distance).
	MaxStep = 6
)

var (
	ErrOutOfRange = errors.New("target out of range")
	ErrNoArrow    = errors.New("no arrow")
	ErrNoBow      = errors.New("no bow")
	ErrSelfTarget = errors.New("cannot target self")
)

type projectile struct {
	ref     modelpkg.EntityRef
	shooter modelpkg.ParticipantID
	pos     modelpkg.Vec3i
	expires uint64
}

// Projectiles lists live projectile refs in creation order.
func (a *Arena) Projectiles() []modelpkg.EntityRef {
	out := make([]modelpkg.EntityRef, 0, len(a.projectiles))
	for i := uint64(1); i <= a.nextEntity; i++ {
		ref := projectileRef(i)
		if _, ok := a.projectiles[ref]; ok {
			out = append(out, ref)
		}
	}
	return out
}

func projectileRef(n uint64) modelpkg.EntityRef {
	return modelpkg.EntityRef(fmt.Sprintf("P%d", n))
}

func (a *Arena) expireProjectiles() {
	for ref, p := range a.projectiles {
		if a.tick >= p.expires {
			delete(a.projectiles, ref)
		}
	}
}

// actors resolves attacker and target for an attack.
func (a *Arena) actors(attacker, target modelpkg.ParticipantID) (*Player, *Player, error) {
	if attacker == target {
		return nil, nil, ErrSelfTarget
	}
	src := a.players[attacker]
	if src == nil {
		return nil, nil, fmt.Errorf("attacker %s: %w", attacker, ErrUnknownPlayer)
	}
	if src.Mode == modelpkg.ModeSpectator {
		return nil, nil, ErrSpectator
	}
	dst := a.players[target]
	if dst == nil {
		return nil, nil, fmt.Errorf("target %s: %w", target, ErrUnknownPlayer)
	}
	if dst.Mode == modelpkg.ModeSpectator {
		return nil, nil, fmt.Errorf("target %s: %w", target, ErrSpectator)
	}
	return src, dst, nil
}

// Melee resolves a sword hit and returns the damage source for the round.
func (a *Arena) Melee(attacker, target modelpkg.ParticipantID) (modelpkg.DamageSource, error) {
	src, dst, err := a.actors(attacker, target)
	if err != nil {
		return modelpkg.DamageSource{}, err
	}
	if modelpkg.Chebyshev(src.Pos, dst.Pos) > MeleeReach {
		return modelpkg.DamageSource{}, ErrOutOfRange
	}
	a.push(target, protocol.Event{"type": "HIT", "by": string(attacker), "projectile": false})
	return modelpkg.DamageSource{}, nil
}

// Shoot fires an arrow at target. The arrow stays in the arena until
// destroyed or it expires.
func (a *Arena) Shoot(attacker, target modelpkg.ParticipantID) (modelpkg.DamageSource, error) {
	src, dst, err := a.actors(attacker, target)
	if err != nil {
		return modelpkg.DamageSource{}, err
	}
	if src.Inventory[ItemBow] == 0 {
		return modelpkg.DamageSource{}, ErrNoBow
	}
	if src.Inventory[ItemArrow] == 0 {
		return modelpkg.DamageSource{}, ErrNoArrow
	}
	if modelpkg.Chebyshev(src.Pos, dst.Pos) > ProjectileRange {
		return modelpkg.DamageSource{}, ErrOutOfRange
	}
	src.Inventory[ItemArrow]--
	a.nextEntity++
	ref := projectileRef(a.nextEntity)
	a.projectiles[ref] = &projectile{ref: ref, shooter: attacker, pos: dst.Pos, expires: a.tick + ProjectileTTL}
	a.push(target, protocol.Event{"type": "HIT", "by": string(attacker), "projectile": true, "entity": string(ref)})
	return modelpkg.DamageSource{Projectile: true, Entity: ref}, nil
}

type MoveResult struct {
	Pos  modelpkg.Vec3i
	Died bool
}

// Move walks a player to target. Stepping over a column without ground is a
// void death: the player stays where it was and Died is set.
func (a *Arena) Move(id modelpkg.ParticipantID, target modelpkg.Vec3i) (MoveResult, error) {
	p := a.players[id]
	if p == nil {
		return MoveResult{}, fmt.Errorf("move %s: %w", id, ErrUnknownPlayer)
	}
	if p.Mode == modelpkg.ModeSpectator {
		return MoveResult{}, ErrSpectator
	}
	if modelpkg.Chebyshev(p.Pos, target) > MaxStep {
		return MoveResult{}, ErrOutOfRange
	}
	if !a.grid.InBounds(modelpkg.Vec3i{X: target.X, Y: 0, Z: target.Z}) {
		return MoveResult{}, ErrOutOfBounds
	}
	pos, ok := a.settle(target)
	if !ok {
		p.Deaths++
		a.push(id, protocol.Event{"type": "DEATH", "cause": "void", "pos": target.ToArray()})
		return MoveResult{Pos: p.Pos, Died: true}, nil
	}
	p.Pos = pos
	return MoveResult{Pos: pos}, nil
}
