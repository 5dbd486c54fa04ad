package protocol

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/vl1/crypto"
)

// Keys is the key material a codec call may need. Secret keys suites A
// and B; Siv, derived from the same secret, keys suite C.
type Keys struct {
	Secret *crypto.Secret
	Siv    *crypto.AesGmacSiv
}

// DerivePerPacketKey mangles the first 32 bytes of secret with the packet
// ID, both addresses, the flags with the hop count masked, and the total
// packet size. It is a pure function of its inputs.
func DerivePerPacketKey(secret *crypto.Secret, hdr *PacketHeader, packetSize int) [32]byte {
	var key [32]byte
	copy(key[:], secret[:32])

	var mangle [perPacketKeyMangleSize]byte
	copy(mangle[PacketIDIndex:], hdr.ID[:])
	copy(mangle[DestinationIndex:], hdr.Destination[:])
	copy(mangle[SourceIndex:], hdr.Source[:])
	for i, b := range mangle {
		key[i] ^= b
	}
	key[18] ^= hdr.Flags.Authenticated()
	key[19] ^= byte(packetSize)
	key[20] ^= byte(packetSize >> 8)
	return key
}

// Seal authenticates and, depending on the suite in hdr.Flags, encrypts
// payload in place. It fills in hdr.MAC and, for CipherAesGmacSiv, hdr.ID.
// All flags, including the fragmented bit, must be final before sealing.
func Seal(keys Keys, hdr *PacketHeader, messageID uint64, payload []byte) error {
	switch hdr.Flags.Cipher() {
	case CipherNoCryptPoly1305:
		hdr.SetPacketID(messageID)
		SealPlaintextAuth(keys.Secret, hdr, payload)
	case CipherSalsaPoly1305:
		hdr.SetPacketID(messageID)
		SealSalsaPoly(keys.Secret, hdr, payload)
	case CipherAesGmacSiv:
		if keys.Siv == nil {
			return fmt.Errorf("%w: no AES-GMAC-SIV instance", ErrUnsupportedCipher)
		}
		SealAesGmacSiv(keys.Siv, hdr, messageID, payload)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCipher, hdr.Flags.Cipher())
	}
	return nil
}

// Open authenticates payload against hdr and returns the plaintext and the
// message ID it was sealed with. payload is never modified. A false result
// does not say whether the key was wrong or the bytes corrupt.
func Open(keys Keys, hdr *PacketHeader, payload []byte) ([]byte, uint64, bool) {
	switch hdr.Flags.Cipher() {
	case CipherNoCryptPoly1305:
		if !OpenPlaintextAuth(keys.Secret, hdr, payload) {
			return nil, 0, false
		}
		return payload, hdr.PacketID(), true
	case CipherSalsaPoly1305:
		pt, ok := OpenSalsaPoly(keys.Secret, hdr, payload)
		return pt, hdr.PacketID(), ok
	case CipherAesGmacSiv:
		if keys.Siv == nil {
			return nil, 0, false
		}
		return OpenAesGmacSiv(keys.Siv, hdr, payload)
	default:
		return nil, 0, false
	}
}

// SealPlaintextAuth writes a truncated Poly1305 tag over the unencrypted
// payload into hdr.MAC.
func SealPlaintextAuth(secret *crypto.Secret, hdr *PacketHeader, payload []byte) {
	sp := perPacketStream(secret, hdr, len(payload))
	defer sp.Wipe()
	tag := sp.Tag(payload)
	copy(hdr.MAC[:], tag[:MACSize])
}

// OpenPlaintextAuth verifies a suite A packet. Only HELLO may travel
// unencrypted, so any other verb fails.
func OpenPlaintextAuth(secret *crypto.Secret, hdr *PacketHeader, payload []byte) bool {
	if len(payload) == 0 || Verb(payload[0]).Bare() != VerbHello {
		return false
	}
	sp := perPacketStream(secret, hdr, len(payload))
	defer sp.Wipe()
	tag := sp.Tag(payload)
	return subtle.ConstantTimeCompare(tag[:MACSize], hdr.MAC[:]) == 1
}

// SealSalsaPoly encrypts payload in place and writes a truncated Poly1305
// tag over the ciphertext into hdr.MAC.
func SealSalsaPoly(secret *crypto.Secret, hdr *PacketHeader, payload []byte) {
	sp := perPacketStream(secret, hdr, len(payload))
	defer sp.Wipe()
	sp.XORKeyStream(payload, payload)
	tag := sp.Tag(payload)
	copy(hdr.MAC[:], tag[:MACSize])
}

// OpenSalsaPoly verifies the tag over the ciphertext and only then decrypts
// into a new buffer.
func OpenSalsaPoly(secret *crypto.Secret, hdr *PacketHeader, payload []byte) ([]byte, bool) {
	if len(payload) == 0 {
		return nil, false
	}
	sp := perPacketStream(secret, hdr, len(payload))
	defer sp.Wipe()
	tag := sp.Tag(payload)
	if subtle.ConstantTimeCompare(tag[:MACSize], hdr.MAC[:]) != 1 {
		return nil, false
	}
	out := make([]byte, len(payload))
	sp.XORKeyStream(out, payload)
	return out, true
}

// SealAesGmacSiv encrypts payload in place. The first half of the synthetic
// tag replaces the packet ID and the second half fills the MAC field.
func SealAesGmacSiv(siv *crypto.AesGmacSiv, hdr *PacketHeader, messageID uint64, payload []byte) {
	aad := hdr.AAD()
	tag := siv.Seal(payload, messageID, aad[:], payload)
	copy(hdr.ID[:], tag[:PacketIDSize])
	copy(hdr.MAC[:], tag[PacketIDSize:])
}

// OpenAesGmacSiv decrypts into a new buffer and returns the message ID
// recovered from the synthetic tag.
func OpenAesGmacSiv(siv *crypto.AesGmacSiv, hdr *PacketHeader, payload []byte) ([]byte, uint64, bool) {
	if len(payload) == 0 {
		return nil, 0, false
	}
	var tag [crypto.AesGmacSivTagSize]byte
	copy(tag[:], hdr.ID[:])
	copy(tag[PacketIDSize:], hdr.MAC[:])
	aad := hdr.AAD()
	out := make([]byte, len(payload))
	id, ok := siv.Open(out, tag, aad[:], payload)
	if !ok {
		return nil, 0, false
	}
	return out, id, true
}

// LegacyHelloField returns the two bytes older peers expect after the HELLO
// IV: the start of the Salsa20 keystream of the static secret under the
// packet ID. Current receivers ignore them.
func LegacyHelloField(secret *crypto.Secret, packetID uint64) [HelloLegacySize]byte {
	var key [32]byte
	copy(key[:], secret[:32])
	var iv [8]byte
	binary.BigEndian.PutUint64(iv[:], packetID)
	sp := crypto.NewSalsaPoly(&key, iv)
	defer sp.Wipe()
	crypto.ZeroBytes(key[:])

	var out [HelloLegacySize]byte
	sp.Keystream(out[:])
	return out
}

func perPacketStream(secret *crypto.Secret, hdr *PacketHeader, payloadLen int) *crypto.SalsaPoly {
	key := DerivePerPacketKey(secret, hdr, PacketHeaderSize+payloadLen)
	sp := crypto.NewSalsaPoly(&key, hdr.ID)
	crypto.ZeroBytes(key[:])
	return sp
}
