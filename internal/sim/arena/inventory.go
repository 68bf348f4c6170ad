package arena

import (
	"sort"

	"shardthief.gg/internal/protocol"
	modelpkg "shardthief.gg/internal/sim/round/model"
)

const (
	ItemSword = "SWORD"
	ItemBow   = "BOW"
	ItemArrow = "ARROW"
	ItemShard = "SHARD"
)

func (a *Arena) Clear(id modelpkg.ParticipantID) {
	p := a.players[id]
	if p == nil {
		return
	}
	p.Inventory = map[string]int{}
}

func (a *Arena) GrantBaseLoadout(id modelpkg.ParticipantID) {
	p := a.players[id]
	if p == nil {
		return
	}
	p.Inventory[ItemSword] = 1
	p.Inventory[ItemBow] = 1
	if p.Inventory[ItemArrow] < a.spec.KitArrows {
		p.Inventory[ItemArrow] = a.spec.KitArrows
	}
}

func (a *Arena) GrantShardLoadout(id modelpkg.ParticipantID) {
	p := a.players[id]
	if p == nil {
		return
	}
	p.Inventory[ItemShard] = 1
}

// RestockConsumable hands out one arrow, never exceeding max.
func (a *Arena) RestockConsumable(id modelpkg.ParticipantID, max int) {
	p := a.players[id]
	if p == nil || p.Inventory[ItemBow] == 0 {
		return
	}
	if p.Inventory[ItemArrow] >= max {
		return
	}
	p.Inventory[ItemArrow]++
	a.push(id, protocol.Event{"type": "RESTOCK", "item": ItemArrow, "count": p.Inventory[ItemArrow]})
}

// ItemStacks is the inventory sorted by item id, skipping empty stacks.
func (p Player) ItemStacks() []protocol.ItemStack {
	keys := make([]string, 0, len(p.Inventory))
	for k, n := range p.Inventory {
		if n > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]protocol.ItemStack, 0, len(keys))
	for _, k := range keys {
		out = append(out, protocol.ItemStack{Item: k, Count: p.Inventory[k]})
	}
	return out
}
