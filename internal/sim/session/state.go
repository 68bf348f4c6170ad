package session

import (
	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/round"
)

const (
	shardHeld    = "HELD"
	shardDropped = "DROPPED"
	shardNone    = "NONE"
)

func (s *Session) buildState(nowTick uint64, id round.ParticipantID, events []protocol.Event) protocol.StateMsg {
	if events == nil {
		events = []protocol.Event{}
	}
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		PlayerID:        string(id),
		RoundID:         s.roundID,
		Phase:           string(s.phase),
		Shard:           protocol.ShardView{State: shardNone},
		Events:          events,
	}

	if p, ok := s.arena.Player(id); ok {
		msg.Self = protocol.SelfState{
			Pos:       p.Pos.ToArray(),
			Yaw:       p.Yaw,
			Mode:      p.Mode.String(),
			Inventory: p.ItemStacks(),
			Effects:   p.EffectNames(),
		}
	} else {
		msg.Self.Inventory = []protocol.ItemStack{}
	}

	holder := round.ParticipantID("")
	if s.ctrl != nil {
		msg.HoldPercent = s.ctrl.HoldPercent()
		msg.Shard = shardView(s.ctrl.Shard())
		holder = round.ParticipantID(msg.Shard.Holder)
		if e, ok := s.ctrl.Entry(id); ok {
			msg.Self.Count = e.Count
			msg.Self.InvulnerabilityTicks = e.InvulnerabilityTicks
		}
	}

	players := s.arena.Players()
	msg.Players = make([]protocol.PlayerState, 0, len(players))
	for _, p := range players {
		ps := protocol.PlayerState{
			ID:     string(p.ID),
			Name:   p.Name,
			Pos:    p.Pos.ToArray(),
			Mode:   p.Mode.String(),
			Holder: holder != "" && p.ID == holder,
		}
		if s.ctrl != nil {
			if e, ok := s.ctrl.Entry(p.ID); ok {
				ps.Count = e.Count
			}
		}
		msg.Players = append(msg.Players, ps)
	}
	return msg
}

func shardView(st round.ShardState) protocol.ShardView {
	switch v := st.(type) {
	case round.HeldShard:
		return protocol.ShardView{State: shardHeld, Holder: string(v.Holder)}
	case *round.DroppedShard:
		pos := v.Pos.ToArray()
		return protocol.ShardView{State: shardDropped, Pos: &pos, InvulnerabilityTicks: v.InvulnerabilityTicks}
	}
	return protocol.ShardView{State: shardNone}
}
