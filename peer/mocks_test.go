package peer

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/opd-ai/vl1/identity"
	"github.com/opd-ai/vl1/pool"
	"github.com/opd-ai/vl1/protocol"
	"github.com/opd-ai/vl1/transport"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// mockNode is a Node with settable root and FIPS mode.
// ---------------------------------------------------------------------------

type mockNode struct {
	id       *identity.X25519
	instance uint64
	locator  []byte
	fips     bool
	root     *Peer
	buffers  *pool.Pool[[]byte]
}

func newMockNode(t *testing.T) *mockNode {
	t.Helper()
	id, err := identity.Generate()
	require.NoError(t, err)
	return &mockNode{id: id, instance: 0x1234, buffers: NewPacketBufferPool(2)}
}

func (n *mockNode) Identity() identity.Identity { return n.id }
func (n *mockNode) InstanceID() uint64 { return n.instance }
func (n *mockNode) Locator() []byte { return n.locator }
func (n *mockNode) IsPeerRoot(p *Peer) bool { return n.root != nil && p == n.root }
func (n *mockNode) Root() *Peer { return n.root }
func (n *mockNode) FIPSMode() bool { return n.fips }
func (n *mockNode) PacketBuffer() *pool.Guard[[]byte] { return n.buffers.Get() }

// ---------------------------------------------------------------------------
// mockHost records every datagram handed to WireSend.
// ---------------------------------------------------------------------------

type sentDatagram struct {
	endpoint    transport.Endpoint
	localSocket int64
	data        []byte
}

type mockHost struct {
	mu    sync.Mutex
	sent  []sentDatagram
	fail  bool
	clock int64
}

func (h *mockHost) WireSend(endpoint transport.Endpoint, localSocket, localInterface int64, data [][]byte, flags int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail {
		return false
	}
	var d []byte
	for _, b := range data {
		d = append(d, b...)
	}
	h.sent = append(h.sent, sentDatagram{endpoint: endpoint, localSocket: localSocket, data: d})
	return true
}

func (h *mockHost) TimeTicks() int64 { return 0 }
func (h *mockHost) TimeClock() int64 { return h.clock }

// take returns and clears the recorded datagrams.
func (h *mockHost) take() []sentDatagram {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.sent
	h.sent = nil
	return out
}

// ---------------------------------------------------------------------------
// mockHandler records dispatched packets and replies.
// ---------------------------------------------------------------------------

type handledPacket struct {
	verb           protocol.Verb
	messageID      uint64
	forwardSecrecy bool
	extendedAuth   bool
	payload        []byte
}

type handledReply struct {
	inReVerb  protocol.Verb
	inRe      uint64
	errorCode uint8
	payload   []byte
}

type mockHandler struct {
	mu      sync.Mutex
	claim   map[protocol.Verb]bool
	packets []handledPacket
	oks     []handledReply
	errors  []handledReply
}

func newMockHandler(claim ...protocol.Verb) *mockHandler {
	h := &mockHandler{claim: map[protocol.Verb]bool{}}
	for _, v := range claim {
		h.claim[v] = true
	}
	return h
}

func (h *mockHandler) HandlePacket(p *Peer, path Path, fs, ea bool, verb protocol.Verb, id uint64, payload []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.claim[verb] {
		return false
	}
	h.packets = append(h.packets, handledPacket{verb, id, fs, ea, append([]byte(nil), payload...)})
	return true
}

func (h *mockHandler) HandleError(p *Peer, path Path, fs, ea bool, inReVerb protocol.Verb, inRe uint64, code uint8, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, handledReply{inReVerb, inRe, code, append([]byte(nil), payload...)})
}

func (h *mockHandler) HandleOK(p *Peer, path Path, fs, ea bool, inReVerb protocol.Verb, inRe uint64, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.oks = append(h.oks, handledReply{inReVerb, inRe, 0, append([]byte(nil), payload...)})
}

// ---------------------------------------------------------------------------
// side is one end of a two-node test: the local node, its host and handler,
// and its Peer object for the other end.
// ---------------------------------------------------------------------------

type side struct {
	node    *mockNode
	host    *mockHost
	handler *mockHandler
	peer    *Peer
	path    *transport.Path
}

var (
	endpointA = transport.UDPEndpoint(netip.MustParseAddrPort("192.0.2.1:9993"))
	endpointB = transport.UDPEndpoint(netip.MustParseAddrPort("192.0.2.2:9993"))
)

// newPair builds two nodes, each with a Peer for the other and a direct
// path to it.
func newPair(t *testing.T, opts *Options) (a, b *side) {
	t.Helper()
	a = &side{node: newMockNode(t), host: &mockHost{clock: 1700000000000}, handler: newMockHandler(protocol.VerbFrame)}
	b = &side{node: newMockNode(t), host: &mockHost{clock: 1700000000000}, handler: newMockHandler(protocol.VerbFrame)}

	var err error
	a.peer, err = New(Config{Node: a.node, Host: a.host, Handler: a.handler, Options: opts}, b.node.id.Public())
	require.NoError(t, err)
	b.peer, err = New(Config{Node: b.node, Host: b.host, Handler: b.handler, Options: opts}, a.node.id.Public())
	require.NoError(t, err)

	a.path = transport.NewPath(endpointB, 1, 0)
	b.path = transport.NewPath(endpointA, 1, 0)
	a.peer.LearnPath(a.path)
	b.peer.LearnPath(b.path)
	return a, b
}

// deliver hands the datagrams one side sent to the other side's Peer, one
// packet per head datagram.
func deliver(t *testing.T, datagrams []sentDatagram, to *side) {
	t.Helper()
	d := transport.NewDefragmenter()
	for _, s := range datagrams {
		head, frags, ok := d.Assemble(0, s.endpoint, s.data)
		if !ok {
			continue
		}
		hdr, err := protocol.ParsePacketHeader(head)
		require.NoError(t, err)
		to.peer.Receive(10, to.path, &hdr, head, frags)
	}
}

// exchange delivers whatever from has sent to to.
func exchange(t *testing.T, from, to *side) {
	t.Helper()
	deliver(t, from.host.take(), to)
}
