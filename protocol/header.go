package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Address is a 40-bit node address.
type Address [AddressSize]byte

// String returns the address as ten hex digits.
func (a Address) String() string { return hex.EncodeToString(a[:]) }

// IsReserved reports whether the address begins with the reserved 0xff
// prefix that marks fragments on the wire.
func (a Address) IsReserved() bool { return a[0] == FragmentIndicator }

// CipherSuite selects how a packet payload is authenticated and encrypted.
type CipherSuite uint8

const (
	// CipherNoCryptPoly1305 sends the payload in the clear with a Poly1305
	// tag. Only HELLO may use it.
	CipherNoCryptPoly1305 CipherSuite = 0
	// CipherSalsaPoly1305 encrypts with Salsa20 and authenticates with Poly1305.
	CipherSalsaPoly1305 CipherSuite = 1
	// CipherAesGmacSiv encrypts and authenticates with AES-GMAC-SIV.
	CipherAesGmacSiv CipherSuite = 3
)

func (c CipherSuite) String() string {
	switch c {
	case CipherNoCryptPoly1305:
		return "nocrypt-poly1305"
	case CipherSalsaPoly1305:
		return "salsa-poly1305"
	case CipherAesGmacSiv:
		return "aes-gmac-siv"
	default:
		return fmt.Sprintf("cipher(%d)", uint8(c))
	}
}

// Flags is the packed flags/cipher/hops byte of a packet header.
type Flags byte

// Cipher unpacks the cipher suite bits.
func (f Flags) Cipher() CipherSuite {
	return CipherSuite((byte(f) & flagsCipherMask) >> flagsCipherShift)
}

// WithCipher returns f with the cipher suite bits replaced.
func (f Flags) WithCipher(c CipherSuite) Flags {
	return Flags((byte(f) &^ flagsCipherMask) | ((byte(c) << flagsCipherShift) & flagsCipherMask))
}

// Hops unpacks the hop count.
func (f Flags) Hops() uint8 { return byte(f) & flagsHopsMask }

// WithHops returns f with the hop count replaced.
func (f Flags) WithHops(h uint8) Flags {
	return Flags((byte(f) &^ flagsHopsMask) | (h & flagsHopsMask))
}

// Fragmented reports whether fragments follow the head datagram.
func (f Flags) Fragmented() bool { return byte(f)&FlagFragmented != 0 }

// WithFragmented returns f with the fragmented bit set or cleared.
func (f Flags) WithFragmented(on bool) Flags {
	if on {
		return f | FlagFragmented
	}
	return f &^ FlagFragmented
}

// Authenticated returns the bits covered by packet authentication: all of
// them except the hop count, which relays rewrite.
func (f Flags) Authenticated() byte { return byte(f) & flagsHideHopsMask }

// PacketHeader is the fixed 27-byte header that starts every packet.
type PacketHeader struct {
	// ID is the packet ID as sent. For CipherAesGmacSiv it holds the first
	// half of the synthetic tag instead of the message ID.
	ID          [PacketIDSize]byte
	Destination Address
	Source      Address
	Flags       Flags
	MAC         [MACSize]byte
}

// PacketID returns ID as a big-endian integer.
func (h *PacketHeader) PacketID() uint64 { return binary.BigEndian.Uint64(h.ID[:]) }

// SetPacketID stores id big-endian in ID.
func (h *PacketHeader) SetPacketID(id uint64) { binary.BigEndian.PutUint64(h.ID[:], id) }

// MarshalTo writes the header into b, which must hold PacketHeaderSize bytes.
func (h *PacketHeader) MarshalTo(b []byte) {
	_ = b[PacketHeaderSize-1]
	copy(b[PacketIDIndex:], h.ID[:])
	copy(b[DestinationIndex:], h.Destination[:])
	copy(b[SourceIndex:], h.Source[:])
	b[FlagsIndex] = byte(h.Flags)
	copy(b[MACIndex:], h.MAC[:])
}

// AppendTo appends the header to b.
func (h *PacketHeader) AppendTo(b []byte) []byte {
	var hb [PacketHeaderSize]byte
	h.MarshalTo(hb[:])
	return append(b, hb[:]...)
}

// AAD returns the header bytes authenticated as associated data:
// destination, source and the flags with the hop count masked.
func (h *PacketHeader) AAD() [AuthenticatedAADSize]byte {
	var aad [AuthenticatedAADSize]byte
	copy(aad[:], h.Destination[:])
	copy(aad[AddressSize:], h.Source[:])
	aad[2*AddressSize] = h.Flags.Authenticated()
	return aad
}

// ParsePacketHeader reads a header from the start of a datagram.
func ParsePacketHeader(b []byte) (PacketHeader, error) {
	var h PacketHeader
	if len(b) < PacketHeaderSize {
		return h, fmt.Errorf("%w: packet header needs %d bytes, have %d", ErrMalformed, PacketHeaderSize, len(b))
	}
	copy(h.ID[:], b[PacketIDIndex:])
	copy(h.Destination[:], b[DestinationIndex:])
	copy(h.Source[:], b[SourceIndex:])
	h.Flags = Flags(b[FlagsIndex])
	copy(h.MAC[:], b[MACIndex:])
	return h, nil
}

// FragmentHeader is the 16-byte header of every datagram after the head of
// a fragmented packet.
type FragmentHeader struct {
	ID          [PacketIDSize]byte
	Destination Address
	// Total is the number of datagrams including the head.
	Total uint8
	// Index is the 1-based position of this fragment after the head.
	Index uint8
	Hops  uint8
}

// MarshalTo writes the header into b, which must hold FragmentHeaderSize bytes.
func (f *FragmentHeader) MarshalTo(b []byte) {
	_ = b[FragmentHeaderSize-1]
	copy(b[PacketIDIndex:], f.ID[:])
	copy(b[DestinationIndex:], f.Destination[:])
	b[FragmentIndicatorIndex] = FragmentIndicator
	b[FragmentCountIndex] = (f.Total << fragmentTotalShift) | (f.Index & fragmentIndexMask)
	b[FragmentHopsIndex] = f.Hops & fragmentHopsMask
}

// ParseFragmentHeader reads a fragment header from the start of a datagram.
func ParseFragmentHeader(b []byte) (FragmentHeader, error) {
	var f FragmentHeader
	if !IsFragment(b) {
		return f, fmt.Errorf("%w: not a fragment", ErrMalformed)
	}
	copy(f.ID[:], b[PacketIDIndex:])
	copy(f.Destination[:], b[DestinationIndex:])
	f.Total = b[FragmentCountIndex] >> fragmentTotalShift
	f.Index = b[FragmentCountIndex] & fragmentIndexMask
	f.Hops = b[FragmentHopsIndex] & fragmentHopsMask
	return f, nil
}

// IsFragment reports whether a datagram carries a fragment header.
func IsFragment(datagram []byte) bool {
	return len(datagram) >= FragmentHeaderSize && datagram[FragmentIndicatorIndex] == FragmentIndicator
}

// IncrementHops bumps the hop count of a packet or fragment datagram in
// place. It returns false, leaving the datagram unchanged, when the count is
// already at MaxHops or the datagram is too short to carry a header.
func IncrementHops(datagram []byte) bool {
	idx, mask := FlagsIndex, byte(flagsHopsMask)
	switch {
	case IsFragment(datagram):
		idx, mask = FragmentHopsIndex, fragmentHopsMask
	case len(datagram) < PacketHeaderSize:
		return false
	}
	hops := datagram[idx] & mask
	if hops >= MaxHops {
		return false
	}
	datagram[idx] = (datagram[idx] &^ mask) | (hops + 1)
	return true
}
