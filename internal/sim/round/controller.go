package round

import (
	"fmt"
	"io"
	"log"
	"strconv"

	"shardthief.gg/internal/sim/round/logic/countdown"
	"shardthief.gg/internal/sim/round/logic/spawn"
)

// Controller runs one round. It is not safe for concurrent use: the host
// delivers ticks and callbacks serially from a single goroutine.
type Controller struct {
	world World
	pres  Presentation
	inv   Inventory
	rec   Recorder
	log   *log.Logger

	cfg Config
	m   Map

	entries map[ParticipantID]*Entry
	order   []ParticipantID

	shard ShardState

	ticksUntilCount      int
	ticksUntilKitRestock int

	tick   uint64
	opened bool
	closed bool
	result *Result
}

// New builds a round for the given participants and places the shard at the
// map's shard spawn. Participants keep their slice order as join order.
func New(cfg Config, m Map, ports Ports, participants []Participant, logger *log.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if ports.World == nil || ports.Presentation == nil || ports.Inventory == nil {
		return nil, fmt.Errorf("%w: world, presentation and inventory are required", ErrMissingPort)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	c := &Controller{
		world:   ports.World,
		pres:    ports.Presentation,
		inv:     ports.Inventory,
		rec:     ports.Recorder,
		log:     logger,
		cfg:     cfg,
		m:       m,
		entries: make(map[ParticipantID]*Entry, len(participants)),
		order:   make([]ParticipantID, 0, len(participants)),
	}
	for _, p := range participants {
		if p.ID == "" {
			continue
		}
		if _, dup := c.entries[p.ID]; dup {
			continue
		}
		c.entries[p.ID] = newEntry(p, len(c.order), cfg.StartingCount)
		c.order = append(c.order, p.ID)
	}

	c.placeShard(m.ShardSpawn())
	return c, nil
}

// Open puts every participant into play and sends them to their spawn slot.
func (c *Controller) Open() {
	if c.opened || c.closed {
		return
	}
	c.opened = true
	for _, id := range c.order {
		e := c.entries[id]
		c.world.SetGameMode(id, ModeAdventure)
		c.inv.GrantBaseLoadout(id)
		c.respawn(id, e.Slot)
		c.pres.AddParticipant(id)
	}
}

// OnClose releases presentation resources. Later callbacks are ignored.
func (c *Controller) OnClose() {
	if c.closed {
		return
	}
	c.closed = true
	c.pres.Teardown()
}

func (c *Controller) OnTick() {
	if c.closed {
		return
	}
	defer func() { c.tick++ }()

	c.pres.UpdateHoldPercent(c.HoldPercent())

	if d, ok := c.shard.(*DroppedShard); ok {
		d.Tick()
	}

	if c.ticksUntilKitRestock <= 0 {
		c.restockKits()
	}
	c.ticksUntilKitRestock--

	if holder := c.holderEntry(); holder != nil {
		if c.ticksUntilCount <= 0 {
			c.countStep(holder)
			if c.closed {
				return
			}
		}
		c.ticksUntilCount--
	}

	for _, id := range c.order {
		e := c.entries[id]
		if e == nil {
			continue
		}
		e.Tick()
		if c.isHolder(id) {
			continue
		}
		d, ok := c.shard.(*DroppedShard)
		if !ok {
			continue
		}
		pos, ok := c.world.Position(id)
		if !ok {
			continue
		}
		if d.CanPickUp(pos) {
			c.pickUp(e, TransferPickup, "")
		}
	}
}

func (c *Controller) restockKits() {
	for _, id := range c.order {
		if c.isHolder(id) {
			continue
		}
		c.inv.RestockConsumable(id, c.cfg.MaxConsumable)
	}
	c.ticksUntilKitRestock = c.cfg.KitRestockInterval
}

func (c *Controller) countStep(holder *Entry) {
	holder.DecrementCount()
	if holder.Count <= 0 {
		c.win(holder)
		return
	}
	if countdown.IsUrgent(holder.Count) {
		c.announceTitle(Title{
			Slot:  SlotTitle,
			Text:  strconv.Itoa(holder.Count),
			Color: countdown.TitleColor(holder.Count),
			Bold:  true,
		})
		c.world.BroadcastSound(SoundCountTick, 1, 1.5)
	}
	c.ticksUntilCount = countdown.IntervalTicks
}

func (c *Controller) win(holder *Entry) {
	if c.result != nil {
		return
	}
	res := Result{Tick: c.tick, Winner: holder.ID, WinnerName: holder.Name}
	c.result = &res

	c.announce(holder.winMessage())
	c.world.BroadcastSound(SoundWin, 1, 1)
	c.log.Printf("round won by %s (%s) at tick %d", holder.Name, holder.ID, c.tick)
	if c.rec != nil {
		c.rec.RecordFinish(res)
	}
	c.OnClose()
}

// OnDeath sends the participant back to their spawn slot. The shard is not
// affected.
func (c *Controller) OnDeath(id ParticipantID) {
	if c.closed {
		return
	}
	slot := 0
	if e := c.entries[id]; e != nil {
		slot = e.Slot
	}
	c.respawn(id, slot)
}

// OnParticipantAdd handles a late joiner, who watches as a spectator.
func (c *Controller) OnParticipantAdd(p Participant) {
	if c.closed {
		return
	}
	if _, ok := c.entries[p.ID]; !ok {
		c.world.SetGameMode(p.ID, ModeSpectator)
	}
	c.pres.AddParticipant(p.ID)
}

func (c *Controller) OnParticipantRemove(id ParticipantID) {
	if c.closed {
		return
	}
	if e := c.entries[id]; e != nil {
		if c.isHolder(id) {
			c.dropShard(e, "leave")
		}
		delete(c.entries, id)
		for i, oid := range c.order {
			if oid == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	c.pres.RemoveParticipant(id)
}

func (c *Controller) respawn(id ParticipantID, slot int) {
	pos, yaw := spawn.Slot(c.m.Center, c.m.SpawnY, slot)
	c.world.Teleport(id, pos, yaw)
}

func (c *Controller) holderEntry() *Entry {
	held, ok := c.shard.(HeldShard)
	if !ok {
		return nil
	}
	return c.entries[held.Holder]
}

func (c *Controller) isHolder(id ParticipantID) bool {
	held, ok := c.shard.(HeldShard)
	return ok && held.Holder == id
}

func (c *Controller) announce(text string) {
	if c.cfg.MessagePolicy == MessagePerParticipant {
		for _, id := range c.order {
			c.world.SendMessage(id, text)
		}
		return
	}
	c.world.BroadcastMessage(text)
}

func (c *Controller) announceTitle(t Title) {
	if c.cfg.MessagePolicy == MessagePerParticipant {
		for _, id := range c.order {
			c.world.SendTitle(id, t)
		}
		return
	}
	c.world.BroadcastTitle(t)
}

// HoldPercent is the value shown on the hold bar.
func (c *Controller) HoldPercent() float64 {
	if h := c.holderEntry(); h != nil {
		return countdown.HoldPercent(true, h.Count, c.cfg.StartingCount)
	}
	return countdown.HoldPercent(false, 0, c.cfg.StartingCount)
}

// Shard returns a copy of the current shard state.
func (c *Controller) Shard() ShardState {
	switch s := c.shard.(type) {
	case *DroppedShard:
		cp := *s
		return &cp
	default:
		return s
	}
}

func (c *Controller) Holder() (ParticipantID, bool) {
	held, ok := c.shard.(HeldShard)
	return held.Holder, ok
}

func (c *Controller) Entry(id ParticipantID) (Entry, bool) {
	e := c.entries[id]
	if e == nil {
		return Entry{}, false
	}
	return *e, true
}

// Entries lists participants in join order.
func (c *Controller) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.entries[id])
	}
	return out
}

func (c *Controller) Result() (Result, bool) {
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

func (c *Controller) Closed() bool              { return c.closed }
func (c *Controller) Tick() uint64              { return c.tick }
func (c *Controller) Config() Config            { return c.cfg }
func (c *Controller) Map() Map                  { return c.m }
func (c *Controller) Rules() Rules              { return RulesFor(c.cfg) }
func (c *Controller) TicksUntilCount() int      { return c.ticksUntilCount }
func (c *Controller) TicksUntilKitRestock() int { return c.ticksUntilKitRestock }
