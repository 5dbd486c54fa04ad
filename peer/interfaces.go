package peer

import (
	"github.com/opd-ai/vl1/identity"
	"github.com/opd-ai/vl1/pool"
	"github.com/opd-ai/vl1/protocol"
	"github.com/opd-ai/vl1/transport"
)

// Path is a route to a peer. *transport.Path implements it.
type Path interface {
	Endpoint() transport.Endpoint
	LocalSocket() int64
	LocalInterface() int64
	LogSend(ticks int64)
}

// Node is the local node a Peer belongs to.
type Node interface {
	Identity() identity.Identity
	InstanceID() uint64
	// Locator returns the signed locator blob, or nil if there is none.
	Locator() []byte
	IsPeerRoot(p *Peer) bool
	// Root returns the best root peer, or nil.
	Root() *Peer
	FIPSMode() bool
	// PacketBuffer checks out a buffer with capacity limits.PacketSizeMax.
	PacketBuffer() *pool.Guard[[]byte]
}

// HostSystem is the caller's side of the transport. *transport.UDPHost
// implements it.
type HostSystem interface {
	WireSend(endpoint transport.Endpoint, localSocket, localInterface int64, data [][]byte, flags int) bool
	TimeTicks() int64
	TimeClock() int64
}

// PacketHandler is the higher layer. HandlePacket gets first refusal on
// every authenticated packet and returns true to claim it. HandleError and
// HandleOK receive replies that passed the freshness check and were not
// consumed by the session layer.
type PacketHandler interface {
	HandlePacket(p *Peer, path Path, forwardSecrecy, extendedAuth bool, verb protocol.Verb, messageID uint64, payload []byte) bool
	HandleError(p *Peer, path Path, forwardSecrecy, extendedAuth bool, inReVerb protocol.Verb, inReMessageID uint64, code uint8, payload []byte)
	HandleOK(p *Peer, path Path, forwardSecrecy, extendedAuth bool, inReVerb protocol.Verb, inReMessageID uint64, payload []byte)
}

// NewPacketBufferPool returns a pool of packet buffers for Node
// implementations.
func NewPacketBufferPool(idle int) *pool.Pool[[]byte] {
	return pool.New(idle, func() []byte { return make([]byte, 0, packetBufferSize) }, nil)
}
