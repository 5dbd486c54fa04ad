// Package limits provides centralized size ceilings for the VL1 wire protocol.
// This ensures consistent validation across the codec, the fragmenter and the
// peer session layer.
package limits

import (
	"errors"
	"fmt"
)

const (
	// UDPDefaultMTU is the payload size of one UDP datagram that is assumed to
	// traverse the internet without IP fragmentation.
	UDPDefaultMTU = 1432

	// MinMTU is the smallest transport MTU a peer may be configured with.
	MinMTU = 256

	// PacketSizeMin is a packet header plus a verb byte.
	PacketSizeMin = 28

	// PacketSizeMax is the largest logical packet, header included, that may
	// be assembled from a head datagram and its fragments.
	PacketSizeMax = 10000

	// FragmentCountMax is the protocol ceiling on datagrams per logical
	// packet, the head included.
	FragmentCountMax = 8

	// PacketResponseCounterDeltaMax is how far behind the outgoing packet ID
	// counter an OK or ERROR may refer and still be considered fresh.
	PacketResponseCounterDeltaMax = 1024

	// CompressionThreshold is the payload length below which outbound
	// payloads are never compressed.
	CompressionThreshold = 64

	// DictionaryEntriesMax bounds the number of entries accepted from a
	// remote HELLO dictionary.
	DictionaryEntriesMax = 64
)

var (
	// ErrPacketTooShort indicates a packet shorter than PacketSizeMin.
	ErrPacketTooShort = errors.New("packet too short")

	// ErrPacketTooLarge indicates a packet exceeding PacketSizeMax or the
	// capacity of the configured MTU.
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrInvalidMTU indicates an MTU outside the supported range.
	ErrInvalidMTU = errors.New("invalid mtu")

	// ErrTooManyFragments indicates a packet that would need more than
	// FragmentCountMax datagrams at the given MTU.
	ErrTooManyFragments = errors.New("too many fragments")
)

// ValidatePacketSize checks a logical packet length against the protocol bounds.
func ValidatePacketSize(size int) error {
	if size < PacketSizeMin {
		return fmt.Errorf("%w: size %d below minimum %d", ErrPacketTooShort, size, PacketSizeMin)
	}
	if size > PacketSizeMax {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrPacketTooLarge, size, PacketSizeMax)
	}
	return nil
}

// ValidateMTU checks that a transport MTU can carry a packet header and at
// least one byte of fragment payload.
func ValidateMTU(mtu int) error {
	if mtu < MinMTU || mtu > PacketSizeMax {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidMTU, mtu, MinMTU, PacketSizeMax)
	}
	return nil
}

// FragmentCount returns the number of datagrams, head included, needed to
// carry a packet of size bytes over mtu when fragments carry headerSize
// bytes of header each.
func FragmentCount(size, mtu, headerSize int) int {
	if size <= mtu {
		return 1
	}
	per := mtu - headerSize
	return 1 + (size-mtu+per-1)/per
}

// ValidateFragmentCount checks that a packet of size bytes fits within
// FragmentCountMax datagrams.
func ValidateFragmentCount(size, mtu, headerSize int) error {
	if n := FragmentCount(size, mtu, headerSize); n > FragmentCountMax {
		return fmt.Errorf("%w: %d bytes over mtu %d needs %d datagrams, max %d",
			ErrTooManyFragments, size, mtu, n, FragmentCountMax)
	}
	return nil
}
