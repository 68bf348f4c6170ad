package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerName      string `json:"player_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	RoundParams     RoundParams `json:"round_params"`
}

type RoundParams struct {
	TickRateHz                int    `json:"tick_rate_hz"`
	StartingCount             int    `json:"starting_count"`
	RestartCount              int    `json:"restart_count"`
	ShardInvulnerabilityTicks int    `json:"shard_invulnerability_ticks"`
	MaxConsumable             int    `json:"max_consumable"`
	PvP                       bool   `json:"pvp"`
	StealPolicy               string `json:"steal_policy"`
	Center                    [3]int `json:"center"`
	Radius                    int    `json:"radius"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	PlayerID        string     `json:"player_id"`
	Move            *[3]int    `json:"move,omitempty"`
	Attack          *AttackReq `json:"attack,omitempty"`
}

type AttackReq struct {
	Target     string `json:"target"`
	Projectile bool   `json:"projectile,omitempty"`
}

// STATE (server -> client), once per tick.
type StateMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	PlayerID        string `json:"player_id"`
	RoundID         string `json:"round_id,omitempty"`
	Phase           string `json:"phase"`

	Self        SelfState     `json:"self"`
	Players     []PlayerState `json:"players"`
	Shard       ShardView     `json:"shard"`
	HoldPercent float64       `json:"hold_percent"`
	Events      []Event       `json:"events"`
}

type SelfState struct {
	Pos                  [3]int      `json:"pos"`
	Yaw                  float64     `json:"yaw"`
	Mode                 string      `json:"mode"`
	Inventory            []ItemStack `json:"inventory"`
	Count                int         `json:"count"`
	InvulnerabilityTicks int         `json:"invulnerability_ticks"`
	Effects              []string    `json:"effects,omitempty"`
}

type PlayerState struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Pos    [3]int `json:"pos"`
	Mode   string `json:"mode"`
	Count  int    `json:"count"`
	Holder bool   `json:"holder,omitempty"`
}

type ShardView struct {
	State                string  `json:"state"` // HELD | DROPPED | NONE
	Holder               string  `json:"holder,omitempty"`
	Pos                  *[3]int `json:"pos,omitempty"`
	InvulnerabilityTicks int     `json:"invulnerability_ticks,omitempty"`
}

type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// ERROR (server -> client) for messages rejected before they reach the
// session.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// Event is a loosely typed notification ("t" and "type" are always set).
type Event map[string]interface{}
