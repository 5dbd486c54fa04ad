package peer

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/identity"
	"github.com/opd-ai/vl1/limits"
	"github.com/opd-ai/vl1/protocol"
	"github.com/opd-ai/vl1/transport"
	"github.com/sirupsen/logrus"
)

const packetBufferSize = limits.PacketSizeMax

// Peer is the session with one remote node: its static and ephemeral
// secrets, known paths and traffic counters. All methods are safe for
// concurrent use.
type Peer struct {
	node    Node
	host    HostSystem
	handler PacketHandler
	options Options

	identity identity.Identity
	address  protocol.Address
	static   *SecretMaterial
	hmacKey  crypto.Secret

	dictionaryMu     sync.Mutex
	dictionaryCipher *crypto.AesCtr

	ephemeralSecret atomic.Pointer[SecretMaterial]

	ephemeralMu   sync.Mutex
	ephemeralPair *EphemeralSession

	// helloMu guards the last HELLO accepted from the peer and the
	// OK(HELLO) dictionary sent in answer to it.
	helloMu        sync.Mutex
	helloSeen      bool
	helloTimestamp uint64
	answeredOffer  bool
	answeredDigest [PublicKeyDigestSize]byte
	answeredReply  protocol.Dictionary

	pathsMu sync.Mutex
	paths   []Path

	reportedMu    sync.Mutex
	reportedLocal transport.Endpoint

	lastSendTicks     atomic.Int64
	lastReceiveTicks  atomic.Int64
	lastForwardTicks  atomic.Int64
	bytesSent         atomic.Uint64
	bytesSentIndirect atomic.Uint64
	bytesReceived     atomic.Uint64
	bytesReceivedInd  atomic.Uint64
	bytesForwarded    atomic.Uint64
	latency           atomic.Int64

	messageIDCounter atomic.Uint64
	remoteVersion    atomic.Uint64
	remoteProtocol   atomic.Uint32
}

// Config holds a Peer's collaborators.
type Config struct {
	Node    Node
	Host    HostSystem
	Handler PacketHandler
	Options *Options
}

// New creates the session with remote. The static secret comes from
// agreement between the local identity and remote, so New fails if the
// local identity has no private key.
func New(cfg Config, remote identity.Identity) (*Peer, error) {
	if cfg.Node == nil || cfg.Host == nil || remote == nil {
		return nil, errors.New("peer: node, host and remote identity are required")
	}
	opts := cfg.Options
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	secret, ok := cfg.Node.Identity().Agree(remote)
	if !ok {
		return nil, fmt.Errorf("peer %s: %w", remote.Address(), ErrAgreementFailed)
	}
	defer secret.Wipe()

	static, err := NewSecretMaterial(DurableSecret, secret, opts.CipherPoolSize)
	if err != nil {
		return nil, err
	}
	dictKey := secret.DeriveKey(crypto.KeyUsageHelloDictionaryEncrypt)
	defer dictKey.Wipe()
	dictCipher, err := crypto.NewAesCtr(dictKey[:32])
	if err != nil {
		return nil, err
	}

	p := &Peer{
		node:             cfg.Node,
		host:             cfg.Host,
		handler:          cfg.Handler,
		options:          *opts,
		identity:         remote,
		address:          remote.Address(),
		static:           static,
		hmacKey:          secret.DeriveKey(crypto.KeyUsageHMAC),
		dictionaryCipher: dictCipher,
	}

	var seed [8]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("peer: seed message id: %w", err)
	}
	p.messageIDCounter.Store(binary.BigEndian.Uint64(seed[:]))

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"peer":     p.address.String(),
	}).Debug("Peer session created")
	return p, nil
}

// Identity returns the remote identity.
func (p *Peer) Identity() identity.Identity { return p.identity }

// Address returns the remote address.
func (p *Peer) Address() protocol.Address { return p.address }

// StaticSecret returns the durable secret material.
func (p *Peer) StaticSecret() *SecretMaterial { return p.static }

func (p *Peer) nextMessageID() uint64 { return p.messageIDCounter.Add(1) }

// LastMessageID returns the most recently issued message ID.
func (p *Peer) LastMessageID() uint64 { return p.messageIDCounter.Load() }

// EphemeralSecret returns the current forward secret, or nil.
func (p *Peer) EphemeralSecret() *SecretMaterial { return p.ephemeralSecret.Load() }

// InstallEphemeralSecret makes secret the current forward secret,
// replacing any previous one.
func (p *Peer) InstallEphemeralSecret(ticks int64, secret crypto.Secret) error {
	sm, err := NewSecretMaterial(ticks, secret, p.options.CipherPoolSize)
	if err != nil {
		return err
	}
	p.ephemeralSecret.Store(sm)
	logrus.WithFields(logrus.Fields{
		"function": "InstallEphemeralSecret",
		"peer":     p.address.String(),
		"ticks":    ticks,
	}).Debug("Ephemeral secret installed")
	return nil
}

// ClearEphemeral drops the forward secret and any pending offer.
func (p *Peer) ClearEphemeral() {
	p.ephemeralSecret.Store(nil)
	p.ephemeralMu.Lock()
	if p.ephemeralPair != nil {
		p.ephemeralPair.Destroy()
		p.ephemeralPair = nil
	}
	p.ephemeralMu.Unlock()
}

// OfferEphemeral generates a new EphemeralSession, superseding any pending
// one. Its public keys go out with the next HELLO; the secret is installed
// when the peer's OK(HELLO) answers with its own keys.
func (p *Peer) OfferEphemeral(ticks int64) (*EphemeralSession, error) {
	e, err := NewEphemeralSession(ticks)
	if err != nil {
		return nil, err
	}
	p.ephemeralMu.Lock()
	old := p.ephemeralPair
	p.ephemeralPair = e
	p.ephemeralMu.Unlock()
	if old != nil {
		old.Destroy()
	}
	return e, nil
}

// PendingEphemeral returns the session on offer, or nil.
func (p *Peer) PendingEphemeral() *EphemeralSession {
	p.ephemeralMu.Lock()
	defer p.ephemeralMu.Unlock()
	return p.ephemeralPair
}

func (p *Peer) takeEphemeralPair() *EphemeralSession {
	p.ephemeralMu.Lock()
	defer p.ephemeralMu.Unlock()
	e := p.ephemeralPair
	p.ephemeralPair = nil
	return e
}

// LearnPath puts path at the front of the path list. A path with the same
// endpoint and local socket is replaced.
func (p *Peer) LearnPath(path Path) {
	p.pathsMu.Lock()
	defer p.pathsMu.Unlock()
	paths := make([]Path, 0, len(p.paths)+1)
	paths = append(paths, path)
	for _, existing := range p.paths {
		if !samePath(existing, path) {
			paths = append(paths, existing)
		}
	}
	p.paths = paths
}

// ForgetPath removes path.
func (p *Peer) ForgetPath(path Path) {
	p.pathsMu.Lock()
	defer p.pathsMu.Unlock()
	paths := p.paths[:0:0]
	for _, existing := range p.paths {
		if !samePath(existing, path) {
			paths = append(paths, existing)
		}
	}
	p.paths = paths
}

// DirectPath returns the best path, or nil if none is known.
func (p *Peer) DirectPath() Path {
	p.pathsMu.Lock()
	defer p.pathsMu.Unlock()
	if len(p.paths) == 0 {
		return nil
	}
	return p.paths[0]
}

// Paths returns the known paths, best first.
func (p *Peer) Paths() []Path {
	p.pathsMu.Lock()
	defer p.pathsMu.Unlock()
	return append([]Path(nil), p.paths...)
}

func samePath(a, b Path) bool {
	return a.Endpoint() == b.Endpoint() && a.LocalSocket() == b.LocalSocket()
}

// ReportedLocalEndpoint returns our address as last reported by the peer.
func (p *Peer) ReportedLocalEndpoint() transport.Endpoint {
	p.reportedMu.Lock()
	defer p.reportedMu.Unlock()
	return p.reportedLocal
}

func (p *Peer) setReportedLocal(e transport.Endpoint) {
	if e.IsNil() {
		return
	}
	p.reportedMu.Lock()
	p.reportedLocal = e
	p.reportedMu.Unlock()
}

// RemoteVersion returns the peer's software version, if known.
func (p *Peer) RemoteVersion() (major, minor uint8, revision, build uint16, known bool) {
	v := p.remoteVersion.Load()
	major, minor, revision, build = protocol.UnpackVersion(v)
	return major, minor, revision, build, v != 0
}

// RemoteProtocolVersion returns the peer's protocol version, or 0.
func (p *Peer) RemoteProtocolVersion() uint8 { return uint8(p.remoteProtocol.Load()) }

func (p *Peer) setRemoteVersion(proto, major, minor uint8, revision uint16) {
	p.remoteProtocol.Store(uint32(proto))
	p.remoteVersion.Store(protocol.PackVersion(major, minor, revision, 0))
}

// Latency returns the last HELLO round trip in ticks, or -1.
func (p *Peer) Latency() int64 {
	if l := p.latency.Load(); l > 0 {
		return l - 1
	}
	return -1
}

// Stats is a snapshot of a Peer's counters.
type Stats struct {
	LastSend, LastReceive, LastForward   int64
	BytesSent, BytesSentIndirect         uint64
	BytesReceived, BytesReceivedIndirect uint64
	BytesForwarded                       uint64
}

// Stats returns the current counters.
func (p *Peer) Stats() Stats {
	return Stats{
		LastSend:              p.lastSendTicks.Load(),
		LastReceive:           p.lastReceiveTicks.Load(),
		LastForward:           p.lastForwardTicks.Load(),
		BytesSent:             p.bytesSent.Load(),
		BytesSentIndirect:     p.bytesSentIndirect.Load(),
		BytesReceived:         p.bytesReceived.Load(),
		BytesReceivedIndirect: p.bytesReceivedInd.Load(),
		BytesForwarded:        p.bytesForwarded.Load(),
	}
}

func (p *Peer) String() string { return p.address.String() }
