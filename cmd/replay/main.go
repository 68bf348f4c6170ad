package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "shardthief.gg/internal/persistence/log"
	"shardthief.gg/internal/sim/session"
	"shardthief.gg/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory (reads events/events-*.jsonl.zst)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml used by the recorded server")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	entries, err := persistlog.ReadTickLog(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read tick log:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no tick log entries found in", *dataDir)
		os.Exit(1)
	}

	sess, err := session.New(tune.SessionConfig(), session.Options{}, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "session:", err)
		os.Exit(1)
	}

	checked, err := replay(sess, entries, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d ticks\n", checked)
}

// replay feeds recorded inputs through StepOnce and compares digests.
// Round ids are random per process and do not take part in the digest.
func replay(sess *session.Session, entries []session.TickLogEntry, toTick uint64) (uint64, error) {
	var checked uint64
	for _, entry := range entries {
		if toTick != 0 && entry.Tick > toTick {
			break
		}
		if entry.Tick != sess.CurrentTick() {
			return checked, fmt.Errorf("tick mismatch: want=%d got=%d", sess.CurrentTick(), entry.Tick)
		}
		if entry.Phase != sess.Phase() {
			return checked, fmt.Errorf("phase mismatch at tick %d: got=%s want=%s", entry.Tick, sess.Phase(), entry.Phase)
		}

		joins := make([]session.JoinRequest, 0, len(entry.Joins))
		for _, j := range entry.Joins {
			joins = append(joins, session.JoinRequest{Name: j.Name})
		}
		acts := make([]session.ActionEnvelope, 0, len(entry.Actions))
		for _, ra := range entry.Actions {
			acts = append(acts, session.ActionEnvelope{PlayerID: ra.PlayerID, Act: ra.Act})
		}

		tick, got := sess.StepOnce(joins, entry.Leaves, acts)
		if tick != entry.Tick {
			return checked, fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
		}
		if got != entry.Digest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, got, entry.Digest)
		}
		checked++
	}
	return checked, nil
}
