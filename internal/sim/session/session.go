package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"shardthief.gg/internal/protocol"
	"shardthief.gg/internal/sim/arena"
	"shardthief.gg/internal/sim/round"
)

const maxNameLen = 32

type client struct {
	ID   round.ParticipantID
	Name string
	Out  chan []byte
}

// Session hosts consecutive rounds for a set of connected players.
// All state must be accessed only from the session loop goroutine.
type Session struct {
	cfg Config
	log *log.Logger

	tick    atomic.Uint64
	metrics atomic.Value

	phase   Phase
	startIn int

	arena *arena.Arena
	ctrl  *round.Controller

	roundID  string
	roundNum int
	finished *round.Result
	// lastRoundEnd is the tick the most recent round finished on.
	lastRoundEnd uint64

	clients map[round.ParticipantID]*client
	order   []round.ParticipantID
	nextNum uint64

	// pending holds session-level events (action results) until the next STATE.
	pending map[round.ParticipantID][]protocol.Event

	inbox chan ActionEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	tickLogger TickLogger
	sinks      []Sink
}

func New(cfg Config, opts Options, logger *log.Logger) (*Session, error) {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.MinPlayers <= 0 {
		cfg.MinPlayers = 2
	}
	if cfg.StartDelayTicks < 0 {
		cfg.StartDelayTicks = 0
	}
	if err := cfg.Round.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Session{
		cfg:        cfg,
		log:        logger,
		phase:      PhaseLobby,
		startIn:    cfg.StartDelayTicks,
		arena:      arena.New(cfg.Arena),
		clients:    map[round.ParticipantID]*client{},
		pending:    map[round.ParticipantID][]protocol.Event{},
		inbox:      make(chan ActionEnvelope, 1024),
		join:       make(chan JoinRequest, 64),
		leave:      make(chan string, 64),
		stop:       make(chan struct{}),
		tickLogger: opts.TickLogger,
		sinks:      opts.Sinks,
	}
	return s, nil
}

func (s *Session) Inbox() chan<- ActionEnvelope { return s.inbox }
func (s *Session) Join() chan<- JoinRequest     { return s.join }
func (s *Session) Leave() chan<- string         { return s.leave }

func (s *Session) CurrentTick() uint64 { return s.tick.Load() }
func (s *Session) TickRateHz() int     { return s.cfg.TickRateHz }
func (s *Session) Config() Config      { return s.cfg }

// Loop-goroutine accessors, used by tests and replay.
func (s *Session) Phase() Phase                  { return s.phase }
func (s *Session) RoundID() string               { return s.roundID }
func (s *Session) Arena() *arena.Arena           { return s.arena }
func (s *Session) Controller() *round.Controller { return s.ctrl }
func (s *Session) StartIn() int                  { return s.startIn }

func (s *Session) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case req := <-s.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-s.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-s.inbox:
			pendingActions = append(pendingActions, env)
		case <-ticker.C:
			s.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (s *Session) Stop() { close(s.stop) }

// StepOnce advances the session by a single tick using the same ordering
// semantics as Run. It is intended for deterministic replays and tests.
func (s *Session) StepOnce(joins []JoinRequest, leaves []string, actions []ActionEnvelope) (tick uint64, digest string) {
	tick = s.tick.Load()
	digest = s.step(joins, leaves, actions)
	return tick, digest
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "player"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}
