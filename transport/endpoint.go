package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// EndpointType identifies the kind of address an Endpoint holds.
type EndpointType uint8

const (
	// EndpointTypeNil is the empty endpoint.
	EndpointTypeNil EndpointType = 0
	// EndpointTypeIP is a bare IP address with a port but no transport.
	EndpointTypeIP EndpointType = 5
	// EndpointTypeIPUDP is a UDP socket address.
	EndpointTypeIPUDP EndpointType = 6
	// EndpointTypeIPTCP is a TCP socket address.
	EndpointTypeIPTCP EndpointType = 7
)

// String returns a human-readable representation of the EndpointType.
func (et EndpointType) String() string {
	switch et {
	case EndpointTypeNil:
		return "nil"
	case EndpointTypeIP:
		return "ip"
	case EndpointTypeIPUDP:
		return "udp"
	case EndpointTypeIPTCP:
		return "tcp"
	default:
		return fmt.Sprintf("EndpointType(%d)", uint8(et))
	}
}

// ErrInvalidEndpoint is returned when an endpoint cannot be decoded.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

const (
	familyIPv4 = 4
	familyIPv6 = 6
)

// Endpoint is a transport address a peer can be reached at.
type Endpoint struct {
	Type EndpointType
	Addr netip.AddrPort
}

// UDPEndpoint returns a UDP endpoint for addr.
func UDPEndpoint(addr netip.AddrPort) Endpoint {
	return Endpoint{Type: EndpointTypeIPUDP, Addr: addr}
}

// EndpointFromNetAddr converts a *net.UDPAddr or *net.TCPAddr.
func EndpointFromNetAddr(addr net.Addr) (Endpoint, error) {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return Endpoint{Type: EndpointTypeIPUDP, Addr: unmap(a.AddrPort())}, nil
	case *net.TCPAddr:
		return Endpoint{Type: EndpointTypeIPTCP, Addr: unmap(a.AddrPort())}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported address %T", ErrInvalidEndpoint, addr)
	}
}

// IsNil reports whether e is the empty endpoint.
func (e Endpoint) IsNil() bool { return e.Type == EndpointTypeNil }

// NetAddr returns e as a net.Addr, or nil for the empty endpoint.
func (e Endpoint) NetAddr() net.Addr {
	switch e.Type {
	case EndpointTypeIPUDP, EndpointTypeIP:
		return net.UDPAddrFromAddrPort(e.Addr)
	case EndpointTypeIPTCP:
		return net.TCPAddrFromAddrPort(e.Addr)
	default:
		return nil
	}
}

func (e Endpoint) String() string {
	if e.IsNil() {
		return "nil"
	}
	return e.Type.String() + "/" + e.Addr.String()
}

// Marshal appends the wire encoding of e to b: a type byte, then for IP
// endpoints a family byte, the address and a big-endian port.
func (e Endpoint) Marshal(b []byte) []byte {
	b = append(b, byte(e.Type))
	if e.IsNil() {
		return b
	}
	ip := e.Addr.Addr().Unmap()
	if ip.Is4() {
		b = append(b, familyIPv4)
	} else {
		b = append(b, familyIPv6)
	}
	b = append(b, ip.AsSlice()...)
	return binary.BigEndian.AppendUint16(b, e.Addr.Port())
}

// UnmarshalEndpoint decodes an endpoint from the start of b and returns the
// bytes after it.
func UnmarshalEndpoint(b []byte) (Endpoint, []byte, error) {
	if len(b) < 1 {
		return Endpoint{}, nil, fmt.Errorf("%w: empty", ErrInvalidEndpoint)
	}
	e := Endpoint{Type: EndpointType(b[0])}
	b = b[1:]
	switch e.Type {
	case EndpointTypeNil:
		return e, b, nil
	case EndpointTypeIP, EndpointTypeIPUDP, EndpointTypeIPTCP:
	default:
		return Endpoint{}, nil, fmt.Errorf("%w: type %d", ErrInvalidEndpoint, e.Type)
	}
	if len(b) < 1 {
		return Endpoint{}, nil, fmt.Errorf("%w: missing family", ErrInvalidEndpoint)
	}
	var n int
	switch b[0] {
	case familyIPv4:
		n = 4
	case familyIPv6:
		n = 16
	default:
		return Endpoint{}, nil, fmt.Errorf("%w: family %d", ErrInvalidEndpoint, b[0])
	}
	b = b[1:]
	if len(b) < n+2 {
		return Endpoint{}, nil, fmt.Errorf("%w: truncated address", ErrInvalidEndpoint)
	}
	ip, _ := netip.AddrFromSlice(b[:n])
	e.Addr = netip.AddrPortFrom(ip, binary.BigEndian.Uint16(b[n:]))
	return e, b[n+2:], nil
}

func unmap(ap netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}
