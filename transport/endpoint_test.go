package transport

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointMarshal(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		want []byte
	}{
		{"nil", Endpoint{}, []byte{0}},
		{"udp4", UDPEndpoint(netip.MustParseAddrPort("10.1.2.3:9993")), []byte{6, 4, 10, 1, 2, 3, 0x27, 0x09}},
		{"tcp6", Endpoint{Type: EndpointTypeIPTCP, Addr: netip.MustParseAddrPort("[::1]:443")},
			[]byte{7, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0x01, 0xbb}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.ep.Marshal(nil)
			assert.Equal(t, tt.want, b)

			got, rest, err := UnmarshalEndpoint(append(b, 0xcc))
			require.NoError(t, err)
			assert.Equal(t, tt.ep, got)
			assert.Equal(t, []byte{0xcc}, rest)
		})
	}
}

func TestEndpointMappedIPv4(t *testing.T) {
	ep := UDPEndpoint(netip.MustParseAddrPort("[::ffff:192.0.2.1]:1"))
	b := ep.Marshal(nil)
	assert.Equal(t, []byte{6, 4, 192, 0, 2, 1, 0, 1}, b)
}

func TestUnmarshalEndpointErrors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"unknown type", []byte{9}},
		{"missing family", []byte{6}},
		{"bad family", []byte{6, 5, 1, 2, 3, 4, 0, 1}},
		{"truncated", []byte{6, 4, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := UnmarshalEndpoint(tt.in)
			assert.ErrorIs(t, err, ErrInvalidEndpoint)
		})
	}
}

func TestEndpointNetAddr(t *testing.T) {
	udp := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
	ep, err := EndpointFromNetAddr(udp)
	require.NoError(t, err)
	assert.Equal(t, EndpointTypeIPUDP, ep.Type)
	assert.Equal(t, "udp/127.0.0.1:5000", ep.String())
	assert.Equal(t, udp.String(), ep.NetAddr().String())

	_, err = EndpointFromNetAddr(&net.IPAddr{})
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	assert.Nil(t, Endpoint{}.NetAddr())
}

func TestPath(t *testing.T) {
	ep := UDPEndpoint(netip.MustParseAddrPort("127.0.0.1:1"))
	p := NewPath(ep, 3, 4)
	assert.Equal(t, ep, p.Endpoint())
	assert.Equal(t, int64(3), p.LocalSocket())
	assert.Equal(t, int64(4), p.LocalInterface())

	p.LogSend(10)
	p.LogReceive(20)
	assert.Equal(t, int64(10), p.LastSend())
	assert.Equal(t, int64(20), p.LastReceive())
}
