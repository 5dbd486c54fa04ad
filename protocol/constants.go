package protocol

// Packet header layout.
const (
	PacketIDIndex          = 0
	DestinationIndex       = 8
	SourceIndex            = 13
	FlagsIndex             = 18
	MACIndex               = 19
	VerbIndex              = 27
	PacketHeaderSize       = 27
	AddressSize            = 5
	MACSize                = 8
	PacketIDSize           = 8
	AuthenticatedAADSize   = 2*AddressSize + 1
	perPacketKeyMangleSize = PacketIDSize + 2*AddressSize
)

// Fragment header layout. The fragment indicator shares its offset with
// the first byte of a packet's source address; 0xff is a reserved address
// prefix, so the two cannot be confused.
const (
	FragmentIndicatorIndex = 13
	FragmentCountIndex     = 14
	FragmentHopsIndex      = 15
	FragmentHeaderSize     = 16
	FragmentIndicator      = 0xff
)

// Flags byte layout: bit 6 fragmented, bits 3-5 cipher suite, bits 0-2 hops.
const (
	FlagFragmented     = 0x40
	flagsCipherMask    = 0x38
	flagsCipherShift   = 3
	flagsHopsMask      = 0x07
	flagsHideHopsMask  = 0xf8
	fragmentHopsMask   = 0x07
	MaxHops            = 7
	fragmentTotalShift = 4
	fragmentIndexMask  = 0x0f
)

// Protocol and software versions advertised in HELLO and OK(HELLO).
const (
	ProtocolVersion uint8 = 20

	// ProtocolVersionMinAesGmacSiv is the lowest protocol version that
	// understands CipherAesGmacSiv.
	ProtocolVersionMinAesGmacSiv uint8 = 11

	VersionMajor    uint8  = 2
	VersionMinor    uint8  = 0
	VersionRevision uint16 = 0
)

// HELLO dictionary keys.
const (
	DictKeyInstanceID      = "I"
	DictKeyClock           = "C"
	DictKeyLocator         = "L"
	DictKeyEphemeralC25519 = "E0"
	DictKeyEphemeralP521   = "E1"
	DictKeySysArch         = "Sa"
	DictKeySysBits         = "Sb"
	DictKeyOSName          = "So"
)

// HelloIVSize is the size of the random block that keys the HELLO dictionary
// cipher; HelloLegacySize is the trailing legacy field after it.
const (
	HelloIVSize       = 16
	HelloLegacySize   = 2
	HelloReservedSize = 2
)
