package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"shardthief.gg/internal/protocol"
)

const (
	maxStep    = 6
	meleeReach = 4
)

func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "player name")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      *name,
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME player_id=%s tick_rate=%d starting_count=%d", w.PlayerID, w.RoundParams.TickRateHz, w.RoundParams.StartingCount)

		case protocol.TypeError:
			var em protocol.ErrorMsg
			if err := json.Unmarshal(msg, &em); err == nil {
				logger.Printf("ERROR code=%s %s", em.Code, em.Message)
			}

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			logEvents(logger, &st)
			if act, ok := decide(&st, r); ok {
				_ = conn.WriteJSON(act)
			}
		}
	}
}

func logEvents(logger *log.Logger, st *protocol.StateMsg) {
	for _, e := range st.Events {
		switch e["type"] {
		case "TITLE", "DEATH", "ACTION_RESULT":
			logger.Printf("tick=%d %v", st.Tick, map[string]interface{}(e))
		}
	}
}

// decide chases the dropped shard or the holder. The holder wanders.
func decide(st *protocol.StateMsg, r *rand.Rand) (protocol.ActMsg, bool) {
	if st.Phase != "ACTIVE" || st.Self.Mode == "SPECTATOR" {
		return protocol.ActMsg{}, false
	}
	// One action every few ticks keeps the queue short.
	if st.Tick%4 != 0 {
		return protocol.ActMsg{}, false
	}
	act := protocol.ActMsg{
		Type:            protocol.TypeAct,
		ProtocolVersion: protocol.Version,
		Tick:            st.Tick,
		PlayerID:        st.PlayerID,
	}
	self := st.Self.Pos

	switch {
	case st.Shard.State == "HELD" && st.Shard.Holder == st.PlayerID:
		dst := [3]int{self[0] + r.Intn(2*maxStep+1) - maxStep, self[1], self[2] + r.Intn(2*maxStep+1) - maxStep}
		act.Move = &dst

	case st.Shard.State == "HELD":
		var target *protocol.PlayerState
		for i := range st.Players {
			if st.Players[i].ID == st.Shard.Holder {
				target = &st.Players[i]
				break
			}
		}
		if target == nil {
			return protocol.ActMsg{}, false
		}
		d := chebyshev(self, target.Pos)
		act.Attack = &protocol.AttackReq{Target: target.ID, Projectile: d > meleeReach}
		if d > meleeReach {
			dst := stepToward(self, target.Pos)
			act.Move = &dst
		}

	case st.Shard.State == "DROPPED" && st.Shard.Pos != nil:
		dst := stepToward(self, *st.Shard.Pos)
		act.Move = &dst

	default:
		return protocol.ActMsg{}, false
	}
	return act, true
}

func stepToward(from, to [3]int) [3]int {
	out := from
	for _, i := range []int{0, 2} {
		d := to[i] - from[i]
		if d > maxStep {
			d = maxStep
		}
		if d < -maxStep {
			d = -maxStep
		}
		out[i] += d
	}
	out[1] = to[1]
	if abs(out[1]-from[1]) > maxStep {
		out[1] = from[1]
	}
	return out
}

func chebyshev(a, b [3]int) int {
	m := 0
	for i := 0; i < 3; i++ {
		if d := abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
