package session

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"shardthief.gg/internal/sim/round"
)

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

// stateDigest hashes everything that affects future ticks. Round ids are
// random and left out so replays compare equal.
func (s *Session) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	h.Write([]byte(s.phase))
	digestWriteI64(h, &tmp, int64(s.startIn))
	digestWriteU64(h, &tmp, uint64(s.roundNum))
	digestWriteU64(h, &tmp, s.lastRoundEnd)
	digestWriteU64(h, &tmp, s.nextNum)
	for _, id := range s.order {
		h.Write([]byte(id))
		h.Write([]byte(s.clients[id].Name))
	}

	s.arena.WriteDigest(h)
	if s.ctrl != nil {
		s.digestRound(h, &tmp)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Session) digestRound(h hashWriter, tmp *[8]byte) {
	c := s.ctrl
	digestWriteU64(h, tmp, c.Tick())
	digestWriteI64(h, tmp, int64(c.TicksUntilCount()))
	digestWriteI64(h, tmp, int64(c.TicksUntilKitRestock()))
	switch v := c.Shard().(type) {
	case round.HeldShard:
		h.Write([]byte{1})
		h.Write([]byte(v.Holder))
	case *round.DroppedShard:
		h.Write([]byte{2})
		digestWriteI64(h, tmp, int64(v.Pos.X))
		digestWriteI64(h, tmp, int64(v.Pos.Y))
		digestWriteI64(h, tmp, int64(v.Pos.Z))
		digestWriteU64(h, tmp, uint64(v.Restore))
		digestWriteI64(h, tmp, int64(v.InvulnerabilityTicks))
	}
	for _, e := range c.Entries() {
		h.Write([]byte(e.ID))
		digestWriteI64(h, tmp, int64(e.Slot))
		digestWriteI64(h, tmp, int64(e.Count))
		digestWriteI64(h, tmp, int64(e.InvulnerabilityTicks))
	}
}
