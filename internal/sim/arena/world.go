package arena

import (
	"fmt"

	"shardthief.gg/internal/protocol"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

func (a *Arena) QueryCell(p modelpkg.Vec3i) (modelpkg.Cell, error) {
	return a.grid.Get(p)
}

func (a *Arena) SetCell(p modelpkg.Vec3i, c modelpkg.Cell) error {
	return a.grid.Set(p, c)
}

// IsLandable: an empty cell resting on a solid one.
func (a *Arena) IsLandable(c modelpkg.Cell, p modelpkg.Vec3i) bool {
	return c == Air && IsSolid(a.grid.At(p.Down()))
}

func (a *Arena) Position(id modelpkg.ParticipantID) (modelpkg.Vec3i, bool) {
	p := a.players[id]
	if p == nil {
		return modelpkg.Vec3i{}, false
	}
	return p.Pos, true
}

func (a *Arena) SetGameMode(id modelpkg.ParticipantID, m modelpkg.GameMode) {
	p := a.players[id]
	if p == nil {
		return
	}
	p.Mode = m
	a.push(id, protocol.Event{"type": "GAME_MODE", "mode": m.String()})
}

func (a *Arena) Teleport(id modelpkg.ParticipantID, pos modelpkg.Vec3i, yaw float64) {
	p := a.players[id]
	if p == nil {
		return
	}
	if settled, ok := a.settle(pos); ok {
		pos = settled
	}
	p.Pos = pos
	p.Yaw = yaw
	a.push(id, protocol.Event{"type": "TELEPORT", "pos": pos.ToArray(), "yaw": yaw})
}

func (a *Arena) PlaySoundAt(pos modelpkg.Vec3i, s modelpkg.Sound, volume, pitch float32) {
	a.pushAll(protocol.Event{"type": "SOUND", "sound": string(s), "pos": pos.ToArray(), "volume": volume, "pitch": pitch})
}

func (a *Arena) BroadcastSound(s modelpkg.Sound, volume, pitch float32) {
	a.pushAll(protocol.Event{"type": "SOUND", "sound": string(s), "volume": volume, "pitch": pitch})
}

func (a *Arena) BroadcastMessage(text string) {
	a.pushAll(protocol.Event{"type": "MESSAGE", "text": text})
}

func (a *Arena) SendMessage(id modelpkg.ParticipantID, text string) {
	a.push(id, protocol.Event{"type": "MESSAGE", "text": text})
}

func (a *Arena) BroadcastTitle(t modelpkg.Title) {
	a.pushAll(titleEvent(t))
}

func (a *Arena) SendTitle(id modelpkg.ParticipantID, t modelpkg.Title) {
	a.push(id, titleEvent(t))
}

func titleEvent(t modelpkg.Title) protocol.Event {
	return protocol.Event{"type": "TITLE", "slot": string(t.Slot), "text": t.Text, "color": string(t.Color), "bold": t.Bold}
}

func (a *Arena) ApplyTimedEffect(id modelpkg.ParticipantID, e modelpkg.Effect, durationTicks, amplifier int) {
	p := a.players[id]
	if p == nil || durationTicks <= 0 {
		return
	}
	p.Effects[e] = &TimedEffect{Amplifier: amplifier, RemainingTicks: durationTicks}
	a.push(id, protocol.Event{"type": "EFFECT", "effect": string(e), "ticks": durationTicks, "amplifier": amplifier})
}

func (a *Arena) DestroyEntity(ref modelpkg.EntityRef) {
	if _, ok := a.projectiles[ref]; ok {
		delete(a.projectiles, ref)
		return
	}
	a.pushAll(protocol.Event{"type": "ERROR", "code": protocol.ErrInternal, "message": fmt.Sprintf("destroy unknown entity %s", ref)})
}
