package protocol

import "fmt"

// Verb identifies a message type. The top two bits of the verb byte are
// flags and the low five bits the verb proper.
type Verb uint8

const (
	VerbNop             Verb = 0x00
	VerbHello           Verb = 0x01
	VerbError           Verb = 0x02
	VerbOK              Verb = 0x03
	VerbWhois           Verb = 0x04
	VerbRendezvous      Verb = 0x05
	VerbFrame           Verb = 0x06
	VerbExtFrame        Verb = 0x07
	VerbEcho            Verb = 0x08
	VerbPushDirectPaths Verb = 0x10
	VerbUserMessage     Verb = 0x14
)

// Verb byte flags.
const (
	// VerbFlagCompressed marks a payload whose bytes after the verb are LZ4
	// block compressed.
	VerbFlagCompressed Verb = 0x80
	// VerbFlagExtendedAuthentication marks a payload ending in an
	// HMAC-SHA384 over everything before it.
	VerbFlagExtendedAuthentication Verb = 0x40
	// VerbMask selects the verb proper.
	VerbMask Verb = 0x1f
)

// Bare returns the verb with its flag bits masked off.
func (v Verb) Bare() Verb { return v & VerbMask }

// Compressed reports whether VerbFlagCompressed is set.
func (v Verb) Compressed() bool { return v&VerbFlagCompressed != 0 }

// ExtendedAuthentication reports whether VerbFlagExtendedAuthentication is set.
func (v Verb) ExtendedAuthentication() bool { return v&VerbFlagExtendedAuthentication != 0 }

func (v Verb) String() string {
	switch v.Bare() {
	case VerbNop:
		return "NOP"
	case VerbHello:
		return "HELLO"
	case VerbError:
		return "ERROR"
	case VerbOK:
		return "OK"
	case VerbWhois:
		return "WHOIS"
	case VerbRendezvous:
		return "RENDEZVOUS"
	case VerbFrame:
		return "FRAME"
	case VerbExtFrame:
		return "EXT_FRAME"
	case VerbEcho:
		return "ECHO"
	case VerbPushDirectPaths:
		return "PUSH_DIRECT_PATHS"
	case VerbUserMessage:
		return "USER_MESSAGE"
	default:
		return fmt.Sprintf("VERB(0x%02x)", uint8(v.Bare()))
	}
}

// Error codes carried by ERROR.
const (
	ErrorCodeObjectNotFound       uint8 = 0x01
	ErrorCodeUnsupportedOperation uint8 = 0x02
	ErrorCodeNeedMembership       uint8 = 0x06
	ErrorCodeNetworkAccessDenied  uint8 = 0x07
)
