package tuning

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"shardthief.gg/internal/sim/arena"
	"shardthief.gg/internal/sim/round"
	"shardthief.gg/internal/sim/session"
)

//go:embed tuning.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("tuning.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	Round RoundTuning `yaml:"round"`
	Map   MapTuning   `yaml:"map"`
	Lobby LobbyTuning `yaml:"lobby"`
}

type RoundTuning struct {
	StartingCount             int    `yaml:"starting_count"`
	RestartCount              int    `yaml:"restart_count"`
	ShardInvulnerabilityTicks int    `yaml:"shard_invulnerability_ticks"`
	SpeedAmplifier            int    `yaml:"speed_amplifier"`
	KitRestockInterval        int    `yaml:"kit_restock_interval"`
	MaxConsumable             int    `yaml:"max_consumable"`
	PvP                       *bool  `yaml:"pvp"`
	StealPolicy               string `yaml:"steal_policy"`
	MessagePolicy             string `yaml:"message_policy"`
	DestroyProjectile         *bool  `yaml:"destroy_projectile"`
}

type MapTuning struct {
	Radius int    `yaml:"radius"`
	FloorY int    `yaml:"floor_y"`
	ShardY int    `yaml:"shard_y"`
	SpawnY int    `yaml:"spawn_y"`
	Center [3]int `yaml:"center"`
}

type LobbyTuning struct {
	MinPlayers      int `yaml:"min_players"`
	StartDelayTicks int `yaml:"start_delay_ticks"`
}

func Defaults() Tuning {
	def := round.DefaultConfig()
	pvp := def.PvP
	destroy := def.DestroyProjectile
	return Tuning{
		TickRateHz: 20,
		Round: RoundTuning{
			StartingCount:             def.StartingCount,
			RestartCount:              def.RestartCount,
			ShardInvulnerabilityTicks: def.ShardInvulnerabilityTicks,
			SpeedAmplifier:            def.SpeedAmplifier,
			KitRestockInterval:        def.KitRestockInterval,
			MaxConsumable:             def.MaxConsumable,
			PvP:                       &pvp,
			StealPolicy:               string(def.StealPolicy),
			MessagePolicy:             string(def.MessagePolicy),
			DestroyProjectile:         &destroy,
		},
		Map: MapTuning{
			Radius: 12,
			FloorY: 63,
			ShardY: 64,
			SpawnY: 65,
		},
		Lobby: LobbyTuning{
			MinPlayers:      2,
			StartDelayTicks: 100,
		},
	}
}

func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, err
	}
	return Parse(raw)
}

// Parse validates raw yaml against the tuning schema and fills unset fields
// from Defaults.
func Parse(raw []byte) (Tuning, error) {
	if err := validate(raw); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	t := Defaults()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.RoundConfig().Validate(); err != nil {
		return Tuning{}, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func validate(raw []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// Round-trip through JSON so the validator sees plain JSON values.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return sch.Validate(v)
}

func (t Tuning) RoundConfig() round.Config {
	cfg := round.Config{
		StartingCount:             t.Round.StartingCount,
		RestartCount:              t.Round.RestartCount,
		ShardInvulnerabilityTicks: t.Round.ShardInvulnerabilityTicks,
		SpeedAmplifier:            t.Round.SpeedAmplifier,
		KitRestockInterval:        t.Round.KitRestockInterval,
		MaxConsumable:             t.Round.MaxConsumable,
		PvP:                       true,
		StealPolicy:               round.StealPolicy(t.Round.StealPolicy),
		MessagePolicy:             round.MessagePolicy(t.Round.MessagePolicy),
		DestroyProjectile:         true,
	}
	if t.Round.PvP != nil {
		cfg.PvP = *t.Round.PvP
	}
	if t.Round.DestroyProjectile != nil {
		cfg.DestroyProjectile = *t.Round.DestroyProjectile
	}
	return cfg
}

func (t Tuning) ArenaSpec() arena.Spec {
	return arena.Spec{
		Center:    round.Vec3i{X: t.Map.Center[0], Y: t.Map.Center[1], Z: t.Map.Center[2]},
		Radius:    t.Map.Radius,
		FloorY:    t.Map.FloorY,
		ShardY:    t.Map.ShardY,
		SpawnY:    t.Map.SpawnY,
		KitArrows: t.Round.MaxConsumable,
	}
}

func (t Tuning) SessionConfig() session.Config {
	return session.Config{
		TickRateHz:      t.TickRateHz,
		Round:           t.RoundConfig(),
		Arena:           t.ArenaSpec(),
		MinPlayers:      t.Lobby.MinPlayers,
		StartDelayTicks: t.Lobby.StartDelayTicks,
	}
}
