package round

import "fmt"

type StealPolicy string

const (
	// StealDirect hands the shard straight to the attacker.
	StealDirect StealPolicy = "direct"
	// StealDropPickup drops the shard at the holder and lets the attacker
	// pick it up in the same callback.
	StealDropPickup StealPolicy = "drop_pickup"
)

type MessagePolicy string

const (
	MessageBroadcast      MessagePolicy = "broadcast"
	MessagePerParticipant MessagePolicy = "per_participant"
)

type Config struct {
	StartingCount             int
	RestartCount              int
	ShardInvulnerabilityTicks int
	SpeedAmplifier            int
	KitRestockInterval        int
	MaxConsumable             int
	PvP                       bool

	StealPolicy       StealPolicy
	MessagePolicy     MessagePolicy
	DestroyProjectile bool
}

func DefaultConfig() Config {
	return Config{
		StartingCount:             30,
		RestartCount:              10,
		ShardInvulnerabilityTicks: 40,
		SpeedAmplifier:            1,
		KitRestockInterval:        200,
		MaxConsumable:             3,
		PvP:                       true,
		StealPolicy:               StealDirect,
		MessagePolicy:             MessageBroadcast,
		DestroyProjectile:         true,
	}
}

func (c *Config) applyDefaults() {
	if c.StealPolicy == "" {
		c.StealPolicy = StealDirect
	}
	if c.MessagePolicy == "" {
		c.MessagePolicy = MessageBroadcast
	}
}

func (c Config) Validate() error {
	switch {
	case c.StartingCount <= 0:
		return fmt.Errorf("%w: starting count must be positive, got %d", ErrInvalidConfig, c.StartingCount)
	case c.RestartCount < 0 || c.RestartCount > c.StartingCount:
		return fmt.Errorf("%w: restart count %d outside [0,%d]", ErrInvalidConfig, c.RestartCount, c.StartingCount)
	case c.ShardInvulnerabilityTicks < 0:
		return fmt.Errorf("%w: negative shard invulnerability", ErrInvalidConfig)
	case c.SpeedAmplifier < 0:
		return fmt.Errorf("%w: negative speed amplifier", ErrInvalidConfig)
	case c.KitRestockInterval <= 0:
		return fmt.Errorf("%w: kit restock interval must be positive, got %d", ErrInvalidConfig, c.KitRestockInterval)
	case c.MaxConsumable < 0:
		return fmt.Errorf("%w: negative consumable cap", ErrInvalidConfig)
	}
	switch c.StealPolicy {
	case "", StealDirect, StealDropPickup:
	default:
		return fmt.Errorf("%w: unknown steal policy %q", ErrInvalidConfig, c.StealPolicy)
	}
	switch c.MessagePolicy {
	case "", MessageBroadcast, MessagePerParticipant:
	default:
		return fmt.Errorf("%w: unknown message policy %q", ErrInvalidConfig, c.MessagePolicy)
	}
	return nil
}

// Rules is the session rule surface the host applies while a round runs.
type Rules struct {
	Crafting   bool
	FallDamage bool
	Hunger     bool
	Portals    bool
	ThrowItems bool
	PvP        bool
}

func RulesFor(cfg Config) Rules {
	return Rules{PvP: cfg.PvP}
}
