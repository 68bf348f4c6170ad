package session

import (
	"errors"

	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/arena"
	"shardthief.gg/internal/sim/round"
)

const (
	refMove   = "MOVE"
	refAttack = "ATTACK"
)

func actionResult(tick uint64, ref string, ok bool, code string, message string) protocol.Event {
	e := protocol.Event{
		"t":    tick,
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		if !protocol.IsKnownCode(code) {
			code = protocol.ErrInternal
		}
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

func (s *Session) applyAct(nowTick uint64, env ActionEnvelope) {
	id := round.ParticipantID(env.PlayerID)
	if _, ok := s.clients[id]; !ok {
		return
	}
	act := env.Act
	if act.Move == nil && act.Attack == nil {
		s.enqueue(id, actionResult(nowTick, "", false, protocol.ErrBadRequest, "empty act"))
		return
	}
	if code, msg := s.roundGate(act.Tick); code != "" {
		if act.Move != nil {
			s.enqueue(id, actionResult(nowTick, refMove, false, code, msg))
		}
		if act.Attack != nil {
			s.enqueue(id, actionResult(nowTick, refAttack, false, code, msg))
		}
		return
	}
	if act.Move != nil {
		s.applyMove(nowTick, id, *act.Move)
	}
	if act.Attack != nil {
		if s.ctrl.Closed() {
			s.enqueue(id, actionResult(nowTick, refAttack, false, protocol.ErrRoundClosed, "round closed"))
			return
		}
		s.applyAttack(nowTick, id, *act.Attack)
	}
}

// roundGate rejects acts outside a running round. seenTick is the tick of the
// STATE the client acted on; acts based on a finished round get
// E_ROUND_CLOSED rather than E_NOT_IN_ROUND.
func (s *Session) roundGate(seenTick uint64) (code, msg string) {
	if seenTick != 0 && s.lastRoundEnd > 0 && seenTick <= s.lastRoundEnd {
		return protocol.ErrRoundClosed, "round closed"
	}
	if s.phase != PhaseActive || s.ctrl == nil {
		return protocol.ErrNotInRound, "no active round"
	}
	return "", ""
}

func (s *Session) applyMove(nowTick uint64, id round.ParticipantID, target [3]int) {
	res, err := s.arena.Move(id, round.Vec3i{X: target[0], Y: target[1], Z: target[2]})
	if err != nil {
		s.enqueue(id, actionResult(nowTick, refMove, false, codeFor(err), err.Error()))
		return
	}
	if res.Died {
		s.ctrl.OnDeath(id)
		s.enqueue(id, actionResult(nowTick, refMove, false, protocol.ErrInvalidTarget, "fell into the void"))
		return
	}
	s.enqueue(id, actionResult(nowTick, refMove, true, "", ""))
}

func (s *Session) applyAttack(nowTick uint64, id round.ParticipantID, req protocol.AttackReq) {
	target := round.ParticipantID(req.Target)
	// Hits on the holder always go to the round; pvp only covers other hits.
	holder, held := s.ctrl.Holder()
	shardHit := held && holder == target && holder != id
	if !shardHit && !s.ctrl.Rules().PvP {
		s.enqueue(id, actionResult(nowTick, refAttack, false, protocol.ErrNoPermission, "pvp disabled"))
		return
	}
	var (
		src round.DamageSource
		err error
	)
	if req.Projectile {
		src, err = s.arena.Shoot(id, target)
	} else {
		src, err = s.arena.Melee(id, target)
	}
	if err != nil {
		s.enqueue(id, actionResult(nowTick, refAttack, false, codeFor(err), err.Error()))
		return
	}
	s.ctrl.OnDamage(target, id, src)
	s.enqueue(id, actionResult(nowTick, refAttack, true, "", ""))
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, arena.ErrSpectator):
		return protocol.ErrNoPermission
	case errors.Is(err, arena.ErrOutOfRange):
		return protocol.ErrOutOfRange
	case errors.Is(err, arena.ErrNoArrow), errors.Is(err, arena.ErrNoBow):
		return protocol.ErrNoResource
	case errors.Is(err, arena.ErrOutOfBounds), errors.Is(err, arena.ErrUnknownPlayer), errors.Is(err, arena.ErrSelfTarget):
		return protocol.ErrInvalidTarget
	}
	return protocol.ErrInternal
}
