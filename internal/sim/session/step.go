package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/arena"
	"shardthief.gg/internal/sim/round"
)

func (s *Session) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) string {
	started := time.Now()
	nowTick := s.tick.Load()
	phase := s.phase
	roundID := s.roundID

	recJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := s.handleJoin(req)
		recJoins = append(recJoins, RecordedJoin{PlayerID: resp.Welcome.PlayerID, Name: normalizeName(req.Name)})
		if req.Resp != nil {
			req.Resp <- resp
		}
	}
	for _, id := range leaves {
		s.handleLeave(round.ParticipantID(id))
	}

	recActions := make([]RecordedAction, 0, len(actions))
	for _, env := range actions {
		recActions = append(recActions, RecordedAction{PlayerID: env.PlayerID, Act: env.Act})
		s.applyAct(nowTick, env)
	}

	switch s.phase {
	case PhaseLobby:
		s.stepLobby(nowTick)
	case PhaseActive:
		s.stepActive(nowTick)
	}

	digest := s.stateDigest(nowTick)
	s.broadcastState(nowTick)

	if s.tickLogger != nil {
		entry := TickLogEntry{
			Tick:    nowTick,
			Phase:   phase,
			RoundID: roundID,
			Joins:   recJoins,
			Leaves:  leaves,
			Actions: recActions,
			Digest:  digest,
		}
		if err := s.tickLogger.WriteTick(entry); err != nil {
			s.log.Printf("tick log %d: %v", nowTick, err)
		}
	}

	s.publishMetrics(nowTick, started)
	s.tick.Add(1)
	return digest
}

func (s *Session) handleJoin(req JoinRequest) JoinResponse {
	s.nextNum++
	id := round.ParticipantID(fmt.Sprintf("P%d", s.nextNum))
	c := &client{ID: id, Name: normalizeName(req.Name), Out: req.Out}
	s.clients[id] = c
	s.order = append(s.order, id)

	p := round.Participant{ID: id, Name: c.Name}
	s.arena.AddPlayer(p)
	if s.phase == PhaseActive && s.ctrl != nil {
		s.ctrl.OnParticipantAdd(p)
	}
	s.log.Printf("join %s name=%s phase=%s", id, c.Name, s.phase)
	return JoinResponse{Welcome: s.buildWelcome(id)}
}

func (s *Session) handleLeave(id round.ParticipantID) {
	if _, ok := s.clients[id]; !ok {
		return
	}
	if s.phase == PhaseActive && s.ctrl != nil {
		s.ctrl.OnParticipantRemove(id)
	}
	s.arena.RemovePlayer(id)
	delete(s.clients, id)
	delete(s.pending, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.Printf("leave %s", id)
}

func (s *Session) buildWelcome(id round.ParticipantID) protocol.WelcomeMsg {
	rc := s.cfg.Round
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        string(id),
		RoundParams: protocol.RoundParams{
			TickRateHz:                s.cfg.TickRateHz,
			StartingCount:             rc.StartingCount,
			RestartCount:              rc.RestartCount,
			ShardInvulnerabilityTicks: rc.ShardInvulnerabilityTicks,
			MaxConsumable:             rc.MaxConsumable,
			PvP:                       rc.PvP,
			StealPolicy:               string(rc.StealPolicy),
			Center:                    s.cfg.Arena.Center.ToArray(),
			Radius:                    s.cfg.Arena.Radius,
		},
	}
}

func (s *Session) stepLobby(nowTick uint64) {
	if len(s.order) < s.cfg.MinPlayers {
		s.startIn = s.cfg.StartDelayTicks
		return
	}
	if s.startIn > 0 {
		s.startIn--
		return
	}
	s.startRound(nowTick)
}

func (s *Session) startRound(nowTick uint64) {
	s.arena = arena.New(s.cfg.Arena)
	participants := make([]round.Participant, 0, len(s.order))
	for _, id := range s.order {
		c := s.clients[id]
		p := round.Participant{ID: id, Name: c.Name}
		s.arena.AddPlayer(p)
		participants = append(participants, p)
	}

	s.roundNum++
	s.roundID = uuid.NewString()
	s.finished = nil
	ports := round.Ports{
		World:        s.arena,
		Presentation: s.arena,
		Inventory:    s.arena,
		Recorder:     recorder{s: s},
	}
	ctrl, err := round.New(s.cfg.Round, s.arena.Map(), ports, participants, s.log)
	if err != nil {
		s.log.Printf("round start: %v", err)
		s.roundID = ""
		return
	}
	s.ctrl = ctrl
	s.phase = PhaseActive
	ctrl.Open()

	start := RoundStart{
		RoundID:      s.roundID,
		Number:       s.roundNum,
		Tick:         nowTick,
		Participants: participants,
		Config:       s.cfg.Round,
	}
	for _, sink := range s.sinks {
		sink.RoundStarted(start)
	}
	s.log.Printf("round %d start id=%s players=%d", s.roundNum, s.roundID, len(participants))
}

func (s *Session) stepActive(nowTick uint64) {
	if len(s.ctrl.Entries()) == 0 {
		s.ctrl.OnClose()
		s.finishRound(nowTick, "abandoned")
		return
	}
	s.ctrl.OnTick()
	s.arena.Step()
	if s.ctrl.Closed() {
		s.finishRound(nowTick, "win")
	}
}

func (s *Session) finishRound(nowTick uint64, reason string) {
	fin := RoundFinish{RoundID: s.roundID, Tick: nowTick, Reason: reason}
	if s.finished != nil {
		fin.Winner = string(s.finished.Winner)
		fin.WinnerName = s.finished.WinnerName
	}
	for _, sink := range s.sinks {
		sink.RoundFinished(fin)
	}
	s.log.Printf("round %d finish id=%s reason=%s winner=%s", s.roundNum, s.roundID, reason, fin.WinnerName)

	// Drain round events into the outgoing queue before the arena is replaced.
	for _, id := range s.order {
		s.pending[id] = append(s.pending[id], s.arena.DrainEvents(id)...)
	}

	s.phase = PhaseLobby
	s.startIn = s.cfg.StartDelayTicks
	s.lastRoundEnd = nowTick
	s.ctrl = nil
	s.roundID = ""
	s.arena = arena.New(s.cfg.Arena)
	for _, id := range s.order {
		s.arena.AddPlayer(round.Participant{ID: id, Name: s.clients[id].Name})
	}
}

// recorder forwards controller records to the session sinks.
type recorder struct{ s *Session }

func (r recorder) RecordTransfer(t round.Transfer) {
	rt := RoundTransfer{RoundID: r.s.roundID, Tick: r.s.tick.Load(), Transfer: t}
	for _, sink := range r.s.sinks {
		sink.RoundTransferred(rt)
	}
}

func (r recorder) RecordFinish(res round.Result) {
	r.s.finished = &res
}

func (s *Session) enqueue(id round.ParticipantID, ev protocol.Event) {
	if _, ok := s.clients[id]; !ok {
		return
	}
	s.pending[id] = append(s.pending[id], ev)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}

func (s *Session) broadcastState(nowTick uint64) {
	for _, id := range s.order {
		c := s.clients[id]
		events := append(s.pending[id], s.arena.DrainEvents(id)...)
		delete(s.pending, id)
		if c.Out == nil {
			continue
		}
		msg := s.buildState(nowTick, id, events)
		b, err := json.Marshal(msg)
		if err != nil {
			s.log.Printf("marshal state for %s: %v", id, err)
			continue
		}
		sendLatest(c.Out, b)
	}
}
