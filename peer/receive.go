package peer

import (
	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/limits"
	"github.com/opd-ai/vl1/protocol"
	"github.com/sirupsen/logrus"
)

// Receive processes one authenticated-or-not packet from this peer. frag0
// is the head datagram, header included; fragments are the remaining
// datagrams in index order, headers included, with nil for any that were
// lost. Anything that fails to authenticate, is stale or is malformed is
// dropped without a reply.
func (p *Peer) Receive(ticks int64, path Path, hdr *protocol.PacketHeader, frag0 []byte, fragments [][]byte) {
	log := logrus.WithFields(logrus.Fields{
		"function": "Receive",
		"peer":     p.address.String(),
	})
	if len(frag0) <= protocol.PacketHeaderSize {
		return
	}

	size := len(frag0)
	payload := append([]byte(nil), frag0[protocol.PacketHeaderSize:]...)
	for _, f := range fragments {
		if len(f) <= protocol.FragmentHeaderSize {
			continue
		}
		size += len(f)
		payload = append(payload, f[protocol.FragmentHeaderSize:]...)
		if len(payload) > limits.PacketSizeMax {
			log.Debug("Dropping oversized packet")
			return
		}
	}

	plaintext, messageID, forwardSecrecy, ok := p.decode(hdr, payload)
	if !ok {
		log.Debug("Dropping packet that failed authentication")
		return
	}

	p.lastReceiveTicks.Store(ticks)
	if hdr.Flags.Hops() > 0 {
		p.bytesReceivedInd.Add(uint64(size))
	} else {
		p.bytesReceived.Add(uint64(size))
	}

	verb := protocol.Verb(plaintext[0])
	extendedAuth := false
	if verb.ExtendedAuthentication() {
		n := len(plaintext) - crypto.HMACSHA384Size
		if n < 1 || !crypto.VerifyHMACSHA384(p.hmacKey[:], plaintext[n:], plaintext[:n]) {
			log.Debug("Dropping packet with bad extended authentication")
			return
		}
		plaintext = plaintext[:n]
		extendedAuth = true
	}
	if verb.Compressed() {
		expanded, err := protocol.DecompressPayload(plaintext)
		if err != nil {
			log.WithField("error", err.Error()).Debug("Dropping packet that failed to decompress")
			return
		}
		plaintext = expanded
	}
	verb = verb.Bare()
	plaintext[0] = byte(verb)

	if !forwardSecrecy && p.EphemeralSecret() != nil && !handshakeVerb(verb, plaintext) {
		log.WithField("verb", verb.String()).Debug("Dropping non-handshake packet under static secret")
		return
	}

	if p.handler != nil && p.handler.HandlePacket(p, path, forwardSecrecy, extendedAuth, verb, messageID, plaintext) {
		return
	}

	switch verb {
	case protocol.VerbHello:
		p.receiveHello(ticks, path, messageID, extendedAuth, plaintext)
	case protocol.VerbError:
		p.receiveError(path, forwardSecrecy, extendedAuth, plaintext)
	case protocol.VerbOK:
		p.receiveOK(ticks, path, forwardSecrecy, extendedAuth, plaintext)
	case protocol.VerbEcho:
		p.receiveEcho(ticks, messageID, plaintext)
	case protocol.VerbNop:
	case protocol.VerbWhois, protocol.VerbRendezvous, protocol.VerbPushDirectPaths, protocol.VerbUserMessage:
		log.WithField("verb", verb.String()).Debug("Verb not handled at this layer")
	default:
		log.WithField("verb", verb.String()).Debug("Ignoring unknown verb")
	}
}

// decode tries the ephemeral secret, then the static one.
func (p *Peer) decode(hdr *protocol.PacketHeader, payload []byte) (plaintext []byte, messageID uint64, forwardSecrecy, ok bool) {
	if eph := p.EphemeralSecret(); eph != nil {
		if pt, id, ok := eph.UseForDecrypt(hdr, payload); ok && len(pt) > 0 {
			return pt, id, true, true
		}
	}
	pt, id, ok := p.static.UseForDecrypt(hdr, payload)
	if !ok || len(pt) == 0 {
		return nil, 0, false, false
	}
	return pt, id, false, true
}

// handshakeVerb reports whether a packet may be processed under the static
// secret once a forward secret exists: HELLO, and OK replying to HELLO.
func handshakeVerb(verb protocol.Verb, payload []byte) bool {
	switch verb {
	case protocol.VerbHello:
		return true
	case protocol.VerbOK:
		ok, _, err := protocol.ParseOkHeader(payload)
		return err == nil && ok.InReVerb.Bare() == protocol.VerbHello
	default:
		return false
	}
}

func (p *Peer) receiveError(path Path, forwardSecrecy, extendedAuth bool, payload []byte) {
	eh, rest, err := protocol.ParseErrorHeader(payload)
	if err != nil {
		return
	}
	if !protocol.ResponseIsFresh(p.LastMessageID(), eh.InReMsgID) {
		logrus.WithFields(logrus.Fields{
			"function": "receiveError",
			"peer":     p.address.String(),
		}).Debug("Dropping stale ERROR")
		return
	}
	if p.handler != nil {
		p.handler.HandleError(p, path, forwardSecrecy, extendedAuth, eh.InReVerb.Bare(), eh.InReMsgID, eh.ErrorCode, rest)
	}
}

func (p *Peer) receiveOK(ticks int64, path Path, forwardSecrecy, extendedAuth bool, payload []byte) {
	ok, rest, err := protocol.ParseOkHeader(payload)
	if err != nil {
		return
	}
	log := logrus.WithFields(logrus.Fields{
		"function": "receiveOK",
		"peer":     p.address.String(),
		"in_re":    ok.InReVerb.String(),
	})
	if !protocol.ResponseIsFresh(p.LastMessageID(), ok.InReMsgID) {
		log.Debug("Dropping stale OK")
		return
	}
	switch ok.InReVerb.Bare() {
	case protocol.VerbHello:
		p.receiveHelloOK(ticks, path, rest)
	case protocol.VerbWhois:
		log.Debug("OK(WHOIS) not handled at this layer")
	default:
		if p.handler != nil {
			p.handler.HandleOK(p, path, forwardSecrecy, extendedAuth, ok.InReVerb.Bare(), ok.InReMsgID, rest)
		}
	}
}

func (p *Peer) receiveEcho(ticks int64, messageID uint64, payload []byte) {
	ok := protocol.OkHeader{Verb: protocol.VerbOK, InReVerb: protocol.VerbEcho, InReMsgID: messageID}
	reply := ok.AppendTo(make([]byte, 0, protocol.OkHeaderSize+len(payload)-1))
	reply = append(reply, payload[1:]...)
	p.Send(ticks, reply)
}
