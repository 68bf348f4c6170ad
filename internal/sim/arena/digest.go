package arena

import (
	"encoding/binary"
	"io"
	"sort"

	modelpkg "shardthief.gg/internal/sim/round/model"
)

func digestWriteU64(h io.Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h io.Writer, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

// WriteDigest feeds the arena state into h in a stable order.
func (a *Arena) WriteDigest(h io.Writer) {
	var tmp [8]byte
	digestWriteU64(h, &tmp, a.tick)

	keys := a.grid.Keys()
	digestWriteU64(h, &tmp, uint64(len(keys)))
	for _, k := range keys {
		digestWriteI64(h, &tmp, int64(k.X))
		digestWriteI64(h, &tmp, int64(k.Y))
		digestWriteI64(h, &tmp, int64(k.Z))
		digestWriteU64(h, &tmp, uint64(a.grid.At(k)))
	}

	ids := make([]string, 0, len(a.players))
	for id := range a.players {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := a.players[modelpkg.ParticipantID(id)]
		h.Write([]byte(id))
		digestWriteI64(h, &tmp, int64(p.Pos.X))
		digestWriteI64(h, &tmp, int64(p.Pos.Y))
		digestWriteI64(h, &tmp, int64(p.Pos.Z))
		digestWriteU64(h, &tmp, uint64(p.Mode))
		for _, it := range p.ItemStacks() {
			h.Write([]byte(it.Item))
			digestWriteU64(h, &tmp, uint64(it.Count))
		}
		for _, e := range p.EffectNames() {
			h.Write([]byte(e))
		}
	}

	for _, ref := range a.Projectiles() {
		h.Write([]byte(ref))
		digestWriteU64(h, &tmp, a.projectiles[ref].expires)
	}

	if a.bar.TornDown {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}
