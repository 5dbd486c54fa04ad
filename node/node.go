// Package node runs peer sessions over a UDP socket. A Node owns its
// identity, one transport.UDPHost and the Peer for every remote node it
// has been told about. Inbound datagrams are defragmented, matched to the
// sending Peer and handed to it; datagrams addressed to another known
// peer are relayed.
package node

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/identity"
	"github.com/opd-ai/vl1/peer"
	"github.com/opd-ai/vl1/pool"
	"github.com/opd-ai/vl1/protocol"
	"github.com/opd-ai/vl1/transport"
	"github.com/sirupsen/logrus"
)

// ErrUnknownPeer is returned when an operation names a peer the node does
// not know.
var ErrUnknownPeer = errors.New("unknown peer")

// Config configures a Node.
type Config struct {
	// ListenAddr is the UDP address to bind, e.g. "127.0.0.1:0".
	ListenAddr string

	// Identity is the local identity. A new one is generated if nil.
	Identity *identity.X25519

	Options *peer.Options
	Handler peer.PacketHandler
	FIPS    bool

	// TimeProvider drives ticks and wall clock. Nil selects the system
	// clock.
	TimeProvider crypto.TimeProvider
}

type pathKey struct {
	endpoint transport.Endpoint
	socket   int64
}

// Node is a local VL1 node.
type Node struct {
	id         *identity.X25519
	instanceID uint64
	options    *peer.Options
	handler    peer.PacketHandler
	fips       bool
	clock      *crypto.Clock
	buffers    *pool.Pool[[]byte]
	defrag     *transport.Defragmenter
	host       *transport.UDPHost

	mu    sync.RWMutex
	peers map[protocol.Address]*peer.Peer
	paths map[pathKey]*transport.Path
	root  *peer.Peer
}

// New creates a node and starts listening.
func New(cfg Config) (*Node, error) {
	opts := cfg.Options
	if opts == nil {
		opts = peer.NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	id := cfg.Identity
	if id == nil {
		var err error
		if id, err = identity.Generate(); err != nil {
			return nil, err
		}
	}
	if !id.HasPrivate() {
		return nil, fmt.Errorf("node: %w: no private key", identity.ErrInvalidIdentity)
	}

	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("node: instance id: %w", err)
	}

	n := &Node{
		id:         id,
		instanceID: binary.BigEndian.Uint64(seed[:]),
		options:    opts,
		handler:    cfg.Handler,
		fips:       cfg.FIPS,
		clock:      crypto.NewClock(cfg.TimeProvider),
		buffers:    peer.NewPacketBufferPool(opts.CipherPoolSize),
		defrag:     transport.NewDefragmenter(),
		peers:      make(map[protocol.Address]*peer.Peer),
		paths:      make(map[pathKey]*transport.Path),
	}
	host, err := transport.NewUDPHost(cfg.ListenAddr, n.clock, n.receive)
	if err != nil {
		return nil, err
	}
	n.host = host

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"address":  id.Address().String(),
		"endpoint": host.LocalEndpoint().String(),
	}).Info("Node started")
	return n, nil
}

// Identity returns the local identity.
func (n *Node) Identity() identity.Identity { return n.id }

// PublicIdentity returns the local identity without its private key.
func (n *Node) PublicIdentity() *identity.X25519 { return n.id.Public() }

// Address returns the local address.
func (n *Node) Address() protocol.Address { return n.id.Address() }

// InstanceID is random per process run.
func (n *Node) InstanceID() uint64 { return n.instanceID }

// Locator is not implemented; nodes advertise no locator.
func (n *Node) Locator() []byte { return nil }

// FIPSMode reports whether AES-GMAC-SIV is mandatory.
func (n *Node) FIPSMode() bool { return n.fips }

// PacketBuffer checks out a packet-sized buffer.
func (n *Node) PacketBuffer() *pool.Guard[[]byte] { return n.buffers.Get() }

// Root returns the root peer, or nil.
func (n *Node) Root() *peer.Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.root
}

// SetRoot makes p the relay for peers with no direct path.
func (n *Node) SetRoot(p *peer.Peer) {
	n.mu.Lock()
	n.root = p
	n.mu.Unlock()
}

// IsPeerRoot reports whether p is the root.
func (n *Node) IsPeerRoot(p *peer.Peer) bool { return p != nil && n.Root() == p }

// Host returns the UDP host.
func (n *Node) Host() *transport.UDPHost { return n.host }

// Ticks returns the node's monotonic clock in milliseconds.
func (n *Node) Ticks() int64 { return n.clock.Ticks() }

// Endpoint returns the bound UDP endpoint.
func (n *Node) Endpoint() transport.Endpoint { return n.host.LocalEndpoint() }

// AddPeer creates the session with remote, or returns the existing one.
// If endpoint is not nil it becomes a direct path.
func (n *Node) AddPeer(remote identity.Identity, endpoint transport.Endpoint) (*peer.Peer, error) {
	if remote.Address() == n.Address() {
		return nil, fmt.Errorf("node: %w: peer is self", identity.ErrInvalidIdentity)
	}
	n.mu.Lock()
	p := n.peers[remote.Address()]
	if p == nil {
		var err error
		p, err = peer.New(peer.Config{Node: n, Host: n.host, Handler: n.handler, Options: n.options}, remote)
		if err != nil {
			n.mu.Unlock()
			return nil, err
		}
		n.peers[remote.Address()] = p
	}
	n.mu.Unlock()

	if !endpoint.IsNil() {
		p.LearnPath(n.path(endpoint, n.host.LocalSocket()))
	}
	return p, nil
}

// Peer returns the session with addr, or nil.
func (n *Node) Peer(addr protocol.Address) *peer.Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.peers[addr]
}

// Peers returns every known session.
func (n *Node) Peers() []*peer.Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*peer.Peer, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, p)
	}
	return out
}

// Handshake offers a new ephemeral key pair to addr and sends HELLO.
func (n *Node) Handshake(addr protocol.Address) error {
	p := n.Peer(addr)
	if p == nil {
		return fmt.Errorf("node: %s: %w", addr, ErrUnknownPeer)
	}
	ticks := n.Ticks()
	if _, err := p.OfferEphemeral(ticks); err != nil {
		return err
	}
	if !p.SendHello(ticks, transport.Endpoint{}) {
		return fmt.Errorf("node: hello to %s not sent", addr)
	}
	return nil
}

// Close stops the UDP host.
func (n *Node) Close() error {
	return n.host.Close()
}

func (n *Node) path(endpoint transport.Endpoint, socket int64) *transport.Path {
	k := pathKey{endpoint: endpoint, socket: socket}
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.paths[k]
	if p == nil {
		p = transport.NewPath(endpoint, socket, 0)
		n.paths[k] = p
	}
	return p
}

func (n *Node) receive(localSocket int64, from transport.Endpoint, data []byte) {
	ticks := n.clock.Ticks()
	log := logrus.WithFields(logrus.Fields{
		"function": "receive",
		"from":     from.String(),
		"size":     len(data),
	})

	var dst protocol.Address
	if protocol.IsFragment(data) {
		fh, err := protocol.ParseFragmentHeader(data)
		if err != nil {
			return
		}
		dst = fh.Destination
	} else {
		hdr, err := protocol.ParsePacketHeader(data)
		if err != nil {
			log.Debug("Dropping runt datagram")
			return
		}
		dst = hdr.Destination
	}

	if dst != n.Address() {
		if target := n.Peer(dst); target != nil {
			target.Forward(ticks, data)
		}
		return
	}

	head, fragments, ok := n.defrag.Assemble(ticks, from, data)
	if !ok {
		return
	}
	hdr, err := protocol.ParsePacketHeader(head)
	if err != nil {
		return
	}
	p := n.Peer(hdr.Source)
	if p == nil {
		log.WithField("source", hdr.Source.String()).Debug("Dropping packet from unknown peer")
		return
	}
	path := n.path(from, localSocket)
	path.LogReceive(ticks)
	p.Receive(ticks, path, &hdr, head, fragments)
}
