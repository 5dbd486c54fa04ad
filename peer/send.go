package peer

import (
	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/limits"
	"github.com/opd-ai/vl1/protocol"
	"github.com/sirupsen/logrus"
)

// Send seals payload, whose first byte is the verb, and sends it over the
// direct path, or through the root when there is none. It returns false if
// no route exists, the packet is too large, or the host refuses it.
func (p *Peer) Send(ticks int64, payload []byte) bool {
	_, ok := p.send(ticks, payload, false, p.currentSecret())
	return ok
}

// SendWithExtendedAuth is Send with an HMAC-SHA384 trailer appended to the
// payload.
func (p *Peer) SendWithExtendedAuth(ticks int64, payload []byte) bool {
	_, ok := p.send(ticks, payload, true, p.currentSecret())
	return ok
}

// Forward relays a datagram addressed to this peer over its direct path
// after incrementing the hop count. Datagrams that already made MaxHops
// hops are dropped.
func (p *Peer) Forward(ticks int64, datagram []byte) bool {
	path := p.DirectPath()
	if path == nil {
		return false
	}
	if !protocol.IncrementHops(datagram) {
		return false
	}
	if !p.host.WireSend(path.Endpoint(), path.LocalSocket(), path.LocalInterface(), [][]byte{datagram}, 0) {
		return false
	}
	path.LogSend(ticks)
	p.lastForwardTicks.Store(ticks)
	p.bytesForwarded.Add(uint64(len(datagram)))
	return true
}

func (p *Peer) currentSecret() *SecretMaterial {
	if eph := p.EphemeralSecret(); eph != nil {
		return eph
	}
	return p.static
}

// cipherSuite picks AES-GMAC-SIV unless the peer is known to predate it or
// Salsa20/Poly1305 is preferred. FIPS mode always gets AES-GMAC-SIV.
func (p *Peer) cipherSuite() protocol.CipherSuite {
	if p.node.FIPSMode() {
		return protocol.CipherAesGmacSiv
	}
	proto := p.RemoteProtocolVersion()
	if proto == 0 {
		return protocol.CipherAesGmacSiv
	}
	if proto < protocol.ProtocolVersionMinAesGmacSiv || p.options.PreferSalsaPoly1305 {
		return protocol.CipherSalsaPoly1305
	}
	return protocol.CipherAesGmacSiv
}

func (p *Peer) route() (Path, bool) {
	if path := p.DirectPath(); path != nil {
		return path, false
	}
	if root := p.node.Root(); root != nil && root != p {
		if path := root.DirectPath(); path != nil {
			return path, true
		}
	}
	return nil, false
}

// send returns the message ID used and whether every datagram went out.
func (p *Peer) send(ticks int64, payload []byte, extendedAuth bool, sm *SecretMaterial) (uint64, bool) {
	log := logrus.WithFields(logrus.Fields{
		"function": "send",
		"peer":     p.address.String(),
	})
	if len(payload) == 0 {
		return 0, false
	}
	path, indirect := p.route()
	if path == nil {
		log.Debug("No path to peer")
		return 0, false
	}

	body := payload
	if p.options.Compression {
		body, _ = protocol.CompressPayload(body)
	}

	buf := p.node.PacketBuffer()
	defer buf.Release()
	packet := buf.Value()[:protocol.PacketHeaderSize]
	packet = append(packet, body...)
	if extendedAuth {
		packet[protocol.VerbIndex] |= byte(protocol.VerbFlagExtendedAuthentication)
		tag := crypto.HMACSHA384(p.hmacKey[:], packet[protocol.PacketHeaderSize:])
		packet = append(packet, tag[:]...)
	}
	if err := limits.ValidatePacketSize(len(packet)); err != nil {
		log.WithField("error", err.Error()).Debug("Refusing to send")
		return 0, false
	}
	if err := limits.ValidateFragmentCount(len(packet), p.options.MTU, protocol.FragmentHeaderSize); err != nil {
		log.WithField("error", err.Error()).Debug("Refusing to send")
		return 0, false
	}

	hdr := protocol.PacketHeader{
		Destination: p.address,
		Source:      p.node.Identity().Address(),
	}
	hdr.Flags = hdr.Flags.WithCipher(p.cipherSuite()).WithFragmented(len(packet) > p.options.MTU)
	messageID := p.nextMessageID()
	if err := sm.UseForEncrypt(&hdr, messageID, packet[protocol.PacketHeaderSize:]); err != nil {
		log.WithField("error", err.Error()).Warn("Seal failed")
		return 0, false
	}
	hdr.MarshalTo(packet)

	if !p.emit(path, packet) {
		return messageID, false
	}
	path.LogSend(ticks)
	p.lastSendTicks.Store(ticks)
	if indirect {
		p.bytesSentIndirect.Add(uint64(len(packet)))
	} else {
		p.bytesSent.Add(uint64(len(packet)))
	}
	return messageID, true
}

func (p *Peer) emit(path Path, packet []byte) bool {
	ep, sock, iface := path.Endpoint(), path.LocalSocket(), path.LocalInterface()
	return protocol.SendFragmented(packet, p.options.MTU, func(datagram []byte) bool {
		return p.host.WireSend(ep, sock, iface, [][]byte{datagram}, 0)
	})
}
