package protocol

import (
	"math"

	"github.com/opd-ai/vl1/limits"
)

// ResponseIsFresh reports whether an OK or ERROR referring to inRe may be a
// reply to a packet we sent, given that counter is the last packet ID we
// issued. The distance counter-inRe is taken modulo 2^64 so a counter that
// has wrapped past zero still accepts replies to IDs issued just before.
func ResponseIsFresh(counter, inRe uint64) bool {
	if counter >= inRe {
		return counter-inRe <= limits.PacketResponseCounterDeltaMax
	}
	return (math.MaxUint64-inRe)+counter+1 <= limits.PacketResponseCounterDeltaMax
}
