package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shardthief.gg/internal/sim/round"
)

func TestParse_DefaultsFillMissingFields(t *testing.T) {
	tu, err := Parse([]byte("round:\n  starting_count: 12\n  pvp: false\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg := tu.RoundConfig()
	if cfg.StartingCount != 12 {
		t.Fatalf("expected starting count 12, got %d", cfg.StartingCount)
	}
	if cfg.PvP {
		t.Fatalf("expected pvp off")
	}
	if !cfg.DestroyProjectile {
		t.Fatalf("expected default destroy_projectile=true")
	}
	if cfg.KitRestockInterval != round.DefaultConfig().KitRestockInterval {
		t.Fatalf("expected default restock interval, got %d", cfg.KitRestockInterval)
	}
	if tu.TickRateHz != 20 || tu.Map.ShardY != 64 {
		t.Fatalf("expected defaults for tick rate and map, got %+v", tu)
	}
}

func TestParse_SchemaRejectsUnknownAndBadValues(t *testing.T) {
	cases := []string{
		"round:\n  starting_count: 0\n",
		"round:\n  steal_policy: teleport\n",
		"round:\n  bogus: 1\n",
		"tick_rate_hz: fast\n",
		"map:\n  center: [1, 2]\n",
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c)); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestCompiledSchema_Reused(t *testing.T) {
	first, err := compiledSchema()
	if err != nil || first == nil {
		t.Fatalf("compile schema: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := Parse([]byte("round:\n  starting_count: 40\n")); err != nil {
			t.Fatalf("parse: %v", err)
		}
	}
	again, _ := compiledSchema()
	if again != first {
		t.Fatalf("schema recompiled: %p != %p", again, first)
	}
}

func TestParse_RejectsRestartAboveStart(t *testing.T) {
	_, err := Parse([]byte("round:\n  starting_count: 5\n  restart_count: 6\n"))
	if err == nil || !strings.Contains(err.Error(), "restart count") {
		t.Fatalf("expected restart count error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	body := "tick_rate_hz: 10\nround:\n  steal_policy: drop_pickup\n  message_policy: per_participant\nmap:\n  center: [4, 0, -4]\nlobby:\n  min_players: 3\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := tu.RoundConfig()
	if cfg.StealPolicy != round.StealDropPickup || cfg.MessagePolicy != round.MessagePerParticipant {
		t.Fatalf("unexpected policies: %+v", cfg)
	}
	if tu.Map.Center != [3]int{4, 0, -4} || tu.Lobby.MinPlayers != 3 || tu.TickRateHz != 10 {
		t.Fatalf("unexpected tuning: %+v", tu)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	tu, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if tu.Round.StartingCount != round.DefaultConfig().StartingCount {
		t.Fatalf("expected defaults for empty document")
	}
}

func TestSessionConfig_FromTuning(t *testing.T) {
	tu := Defaults()
	tu.Map.Center = [3]int{2, 0, 3}
	cfg := tu.SessionConfig()
	if cfg.MinPlayers != 2 || cfg.StartDelayTicks != 100 || cfg.TickRateHz != 20 {
		t.Fatalf("unexpected lobby config %+v", cfg)
	}
	if cfg.Arena.KitArrows != tu.Round.MaxConsumable || cfg.Arena.Center != (round.Vec3i{X: 2, Y: 0, Z: 3}) {
		t.Fatalf("unexpected arena spec %+v", cfg.Arena)
	}
	if err := cfg.Round.Validate(); err != nil {
		t.Fatalf("default round config invalid: %v", err)
	}
}

func TestConfigFile_Parses(t *testing.T) {
	tu, err := Load("../../../configs/tuning.yaml")
	if err != nil {
		t.Fatalf("load repo tuning: %v", err)
	}
	if tu.Map.Radius < 9 || tu.SessionConfig().Round.StartingCount <= 0 {
		t.Fatalf("unexpected repo tuning %+v", tu)
	}
}
