package protocol

import (
	"fmt"

	"github.com/opd-ai/vl1/limits"
	"github.com/sirupsen/logrus"
)

// EmitFunc sends one datagram. The slice is only valid for the duration of
// the call.
type EmitFunc func(datagram []byte) bool

// SendFragmented emits packet over a transport with the given MTU. A packet
// that fits is emitted as one datagram. A larger one is emitted as its
// first mtu bytes followed by fragments, each a FragmentHeader and up to
// mtu-FragmentHeaderSize bytes. The first emit failure aborts the rest.
//
// A packet needing more than limits.FragmentCountMax datagrams is a caller
// bug and panics.
func SendFragmented(packet []byte, mtu int, emit EmitFunc) bool {
	if len(packet) <= mtu {
		return emit(packet)
	}
	if len(packet) < PacketHeaderSize {
		panic(fmt.Errorf("%w: fragmenting %d bytes", ErrMalformed, len(packet)))
	}
	if err := limits.ValidateFragmentCount(len(packet), mtu, FragmentHeaderSize); err != nil {
		panic(err)
	}
	total := limits.FragmentCount(len(packet), mtu, FragmentHeaderSize)

	if !emit(packet[:mtu]) {
		logrus.WithFields(logrus.Fields{
			"function": "SendFragmented",
			"total":    total,
		}).Debug("Head datagram not sent, dropping fragments")
		return false
	}

	fh := FragmentHeader{Total: uint8(total)}
	copy(fh.ID[:], packet[PacketIDIndex:])
	copy(fh.Destination[:], packet[DestinationIndex:])

	per := mtu - FragmentHeaderSize
	buf := make([]byte, mtu)
	rest := packet[mtu:]
	for i := 1; len(rest) > 0; i++ {
		n := min(per, len(rest))
		fh.Index = uint8(i)
		fh.MarshalTo(buf)
		copy(buf[FragmentHeaderSize:], rest[:n])
		if !emit(buf[:FragmentHeaderSize+n]) {
			logrus.WithFields(logrus.Fields{
				"function": "SendFragmented",
				"index":    i,
				"total":    total,
			}).Debug("Fragment not sent, aborting")
			return false
		}
		rest = rest[n:]
	}
	return true
}
