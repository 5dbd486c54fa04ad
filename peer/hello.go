package peer

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"runtime"
	"strconv"

	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/limits"
	"github.com/opd-ai/vl1/protocol"
	"github.com/opd-ai/vl1/transport"
	"github.com/sirupsen/logrus"
)

var (
	errIdentityMismatch = fmt.Errorf("%w: identity does not match peer", protocol.ErrMalformed)
	errShortHello       = fmt.Errorf("%w: hello truncated", protocol.ErrMalformed)
)

// SendHello sends a HELLO over the best path, or to endpoint when no path
// is known. The HELLO travels unencrypted under CipherNoCryptPoly1305; its
// dictionary is encrypted with AES-CTR and the payload carries an
// HMAC-SHA384 trailer.
func (p *Peer) SendHello(ticks int64, endpoint transport.Endpoint) bool {
	log := logrus.WithFields(logrus.Fields{
		"function": "SendHello",
		"peer":     p.address.String(),
	})
	path := p.DirectPath()
	if path != nil {
		endpoint = path.Endpoint()
	}
	if endpoint.IsNil() {
		log.Debug("No endpoint for HELLO")
		return false
	}

	buf := p.node.PacketBuffer()
	defer buf.Release()

	hdr := protocol.PacketHeader{
		Destination: p.address,
		Source:      p.node.Identity().Address(),
	}
	hdr.Flags = hdr.Flags.WithCipher(protocol.CipherNoCryptPoly1305)
	messageID := p.nextMessageID()
	hdr.SetPacketID(messageID)

	packet := buf.Value()[:protocol.PacketHeaderSize]
	fixed := protocol.HelloFixed{
		Verb:            protocol.VerbHello | protocol.VerbFlagExtendedAuthentication,
		ProtocolVersion: protocol.ProtocolVersion,
		VersionMajor:    protocol.VersionMajor,
		VersionMinor:    protocol.VersionMinor,
		VersionRevision: protocol.VersionRevision,
		Timestamp:       uint64(ticks),
	}
	packet = fixed.AppendTo(packet)
	packet = p.node.Identity().Marshal(packet)
	packet = endpoint.Marshal(packet)

	var iv [protocol.HelloIVSize]byte
	if _, err := rand.Read(iv[:]); err != nil {
		log.WithField("error", err.Error()).Warn("No randomness for HELLO")
		return false
	}
	iv[12] &= 0x7f
	packet = append(packet, iv[:]...)
	legacy := protocol.LegacyHelloField(&p.static.secret, messageID)
	packet = append(packet, legacy[:]...)

	dict, err := p.helloDictionary(p.node.IsPeerRoot(p)).Encode()
	if err != nil {
		log.WithField("error", err.Error()).Warn("HELLO dictionary encoding failed")
		return false
	}
	if packet, err = protocol.AppendSized(packet, dict); err != nil {
		return false
	}
	if err := p.cryptDictionary(iv, packet[len(packet)-len(dict):]); err != nil {
		return false
	}
	packet = append(packet, make([]byte, protocol.HelloReservedSize)...)

	tag := crypto.HMACSHA384(p.hmacKey[:], packet[protocol.PacketHeaderSize:])
	packet = append(packet, tag[:]...)
	if err := limits.ValidatePacketSize(len(packet)); err != nil {
		log.WithField("error", err.Error()).Debug("Refusing to send HELLO")
		return false
	}
	if err := limits.ValidateFragmentCount(len(packet), p.options.MTU, protocol.FragmentHeaderSize); err != nil {
		log.WithField("error", err.Error()).Debug("Refusing to send HELLO")
		return false
	}

	hdr.Flags = hdr.Flags.WithFragmented(len(packet) > p.options.MTU)
	protocol.SealPlaintextAuth(&p.static.secret, &hdr, packet[protocol.PacketHeaderSize:])
	hdr.MarshalTo(packet)

	var sent bool
	if path != nil {
		sent = p.emit(path, packet)
		if sent {
			path.LogSend(ticks)
		}
	} else {
		sent = protocol.SendFragmented(packet, p.options.MTU, func(datagram []byte) bool {
			return p.host.WireSend(endpoint, -1, 0, [][]byte{datagram}, 0)
		})
	}
	if sent {
		p.lastSendTicks.Store(ticks)
		p.bytesSent.Add(uint64(len(packet)))
	}
	log.WithFields(logrus.Fields{
		"endpoint": endpoint.String(),
		"size":     len(packet),
		"sent":     sent,
	}).Debug("HELLO sent")
	return sent
}

func (p *Peer) cryptDictionary(iv [protocol.HelloIVSize]byte, b []byte) error {
	p.dictionaryMu.Lock()
	defer p.dictionaryMu.Unlock()
	p.dictionaryCipher.Init(iv)
	return p.dictionaryCipher.Crypt(b)
}

func (p *Peer) helloDictionary(toRoot bool) protocol.Dictionary {
	d := protocol.Dictionary{}
	d.SetUint64(protocol.DictKeyInstanceID, p.node.InstanceID())
	d.SetUint64(protocol.DictKeyClock, uint64(p.host.TimeClock()))
	if loc := p.node.Locator(); len(loc) > 0 {
		d[protocol.DictKeyLocator] = loc
	}
	if e := p.PendingEphemeral(); e != nil {
		d[protocol.DictKeyEphemeralC25519] = e.X25519Public()
		d[protocol.DictKeyEphemeralP521] = e.P521Public()
	}
	if toRoot && p.options.Diagnostics {
		d[protocol.DictKeySysArch] = []byte(runtime.GOARCH)
		d[protocol.DictKeySysBits] = []byte(strconv.Itoa(strconv.IntSize))
		d[protocol.DictKeyOSName] = []byte(runtime.GOOS)
	}
	return d
}

// HelloDictionary decrypts and decodes the dictionary of a HELLO payload
// received from this peer.
func (p *Peer) HelloDictionary(payload []byte) (protocol.Dictionary, error) {
	h, err := p.parseHello(payload)
	if err != nil {
		return nil, err
	}
	return h.dict, nil
}

type parsedHello struct {
	fixed    protocol.HelloFixed
	endpoint transport.Endpoint
	dict     protocol.Dictionary
}

func (p *Peer) parseHello(payload []byte) (*parsedHello, error) {
	fixed, err := protocol.ParseHelloFixed(payload)
	if err != nil {
		return nil, err
	}
	rest := payload[protocol.HelloFixedSize:]
	id := p.identity.Marshal(nil)
	if !bytes.HasPrefix(rest, id) {
		return nil, errIdentityMismatch
	}
	rest = rest[len(id):]

	ep, rest, err := transport.UnmarshalEndpoint(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) < protocol.HelloIVSize+protocol.HelloLegacySize {
		return nil, errShortHello
	}
	var iv [protocol.HelloIVSize]byte
	copy(iv[:], rest)
	rest = rest[protocol.HelloIVSize+protocol.HelloLegacySize:]

	sealed, _, err := protocol.ReadSized(rest)
	if err != nil {
		return nil, err
	}
	plain := append([]byte(nil), sealed...)
	if err := p.cryptDictionary(iv, plain); err != nil {
		return nil, err
	}
	dict, err := protocol.DecodeDictionary(plain)
	if err != nil {
		return nil, err
	}
	return &parsedHello{fixed: fixed, endpoint: ep, dict: dict}, nil
}

// receiveHello records what the peer tells us and answers with OK(HELLO).
// A HELLO carrying ephemeral public keys is answered with our own, and the
// agreed secret is installed after the reply has gone out under the static
// secret.
func (p *Peer) receiveHello(ticks int64, path Path, messageID uint64, extendedAuth bool, payload []byte) {
	log := logrus.WithFields(logrus.Fields{
		"function": "receiveHello",
		"peer":     p.address.String(),
	})
	if !extendedAuth {
		log.Debug("Dropping HELLO without extended authentication")
		return
	}
	h, err := p.parseHello(payload)
	if err != nil {
		log.WithField("error", err.Error()).Debug("Dropping malformed HELLO")
		return
	}

	remoteX, hasX := h.dict[protocol.DictKeyEphemeralC25519]
	remoteP, hasP := h.dict[protocol.DictKeyEphemeralP521]
	offered := hasX && hasP
	var digest [PublicKeyDigestSize]byte
	if offered {
		digest = publicKeyDigest(remoteX, remoteP)
	}

	p.helloMu.Lock()
	defer p.helloMu.Unlock()
	if p.helloSeen && h.fixed.Timestamp <= p.helloTimestamp {
		// A repeat of the HELLO we last answered gets the same answer and
		// installs nothing; anything older is a replay.
		if h.fixed.Timestamp == p.helloTimestamp && offered == p.answeredOffer && digest == p.answeredDigest {
			log.Debug("Repeated HELLO, resending OK(HELLO)")
			p.sendHelloOK(ticks, path, messageID, h.fixed.Timestamp, p.answeredReply)
			return
		}
		log.WithField("timestamp", h.fixed.Timestamp).Debug("Dropping stale HELLO")
		return
	}

	p.setRemoteVersion(h.fixed.ProtocolVersion, h.fixed.VersionMajor, h.fixed.VersionMinor, h.fixed.VersionRevision)
	p.setReportedLocal(h.endpoint)
	if path != nil {
		p.LearnPath(path)
	}

	reply := protocol.Dictionary{}
	var agreed *crypto.Secret
	if offered {
		e, err := NewEphemeralSession(ticks)
		if err != nil {
			log.WithField("error", err.Error()).Warn("Ephemeral session generation failed")
			return
		}
		secret, err := e.Agree(remoteX, remoteP, &p.static.secret)
		if err != nil {
			e.Destroy()
			log.WithField("error", err.Error()).Debug("Dropping HELLO with bad ephemeral keys")
			return
		}
		reply[protocol.DictKeyEphemeralC25519] = e.X25519Public()
		reply[protocol.DictKeyEphemeralP521] = e.P521Public()
		e.Destroy()
		agreed = &secret
		defer secret.Wipe()
	}

	p.helloSeen = true
	p.helloTimestamp = h.fixed.Timestamp
	p.answeredOffer = offered
	p.answeredDigest = digest
	p.answeredReply = reply

	if !p.sendHelloOK(ticks, path, messageID, h.fixed.Timestamp, reply) {
		log.Debug("OK(HELLO) not sent")
	}
	if agreed != nil {
		if err := p.InstallEphemeralSecret(ticks, *agreed); err != nil {
			log.WithField("error", err.Error()).Warn("Ephemeral secret install failed")
		}
	}
}

func (p *Peer) sendHelloOK(ticks int64, path Path, inRe, timestamp uint64, dict protocol.Dictionary) bool {
	enc, err := dict.Encode()
	if err != nil {
		return false
	}
	ok := protocol.OkHeader{Verb: protocol.VerbOK, InReVerb: protocol.VerbHello, InReMsgID: inRe}
	fields := protocol.HelloOkFields{
		TimestampEcho:   timestamp,
		ProtocolVersion: protocol.ProtocolVersion,
		VersionMajor:    protocol.VersionMajor,
		VersionMinor:    protocol.VersionMinor,
		VersionRevision: protocol.VersionRevision,
	}
	b := ok.AppendTo(nil)
	b = fields.AppendTo(b)
	var seen transport.Endpoint
	if path != nil {
		seen = path.Endpoint()
	}
	b = seen.Marshal(b)
	if b, err = protocol.AppendSized(b, enc); err != nil {
		return false
	}
	_, sent := p.send(ticks, b, false, p.static)
	return sent
}

// receiveHelloOK completes a HELLO exchange. The OK header has already
// been checked for freshness.
func (p *Peer) receiveHelloOK(ticks int64, path Path, rest []byte) {
	log := logrus.WithFields(logrus.Fields{
		"function": "receiveHelloOK",
		"peer":     p.address.String(),
	})
	fields, rest, err := protocol.ParseHelloOkFields(rest)
	if err != nil {
		log.Debug("Dropping malformed OK(HELLO)")
		return
	}
	ep, rest, err := transport.UnmarshalEndpoint(rest)
	if err != nil {
		log.Debug("Dropping OK(HELLO) with bad endpoint")
		return
	}
	var dict protocol.Dictionary
	if len(rest) > 0 {
		enc, _, err := protocol.ReadSized(rest)
		if err != nil {
			return
		}
		if dict, err = protocol.DecodeDictionary(enc); err != nil {
			log.WithField("error", err.Error()).Debug("Dropping OK(HELLO) with bad dictionary")
			return
		}
	}

	p.setRemoteVersion(fields.ProtocolVersion, fields.VersionMajor, fields.VersionMinor, fields.VersionRevision)
	p.setReportedLocal(ep)
	if rtt := ticks - int64(fields.TimestampEcho); rtt >= 0 {
		p.latency.Store(rtt + 1)
	}
	if path != nil {
		p.LearnPath(path)
	}

	remoteX, hasX := dict[protocol.DictKeyEphemeralC25519]
	remoteP, hasP := dict[protocol.DictKeyEphemeralP521]
	if !hasX || !hasP {
		return
	}
	e := p.takeEphemeralPair()
	if e == nil {
		log.Debug("OK(HELLO) carries ephemeral keys but nothing is on offer")
		return
	}
	defer e.Destroy()
	secret, err := e.Agree(remoteX, remoteP, &p.static.secret)
	if err != nil {
		log.WithField("error", err.Error()).Debug("Ephemeral agreement failed")
		return
	}
	defer secret.Wipe()
	if err := p.InstallEphemeralSecret(ticks, secret); err != nil {
		log.WithField("error", err.Error()).Warn("Ephemeral secret install failed")
	}
}
