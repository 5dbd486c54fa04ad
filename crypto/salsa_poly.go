package crypto

import (
	"golang.org/x/crypto/poly1305"
	"golang.org/x/crypto/salsa20/salsa"
)

// SalsaPoly is a Salsa20 keystream keyed for a single packet. The first
// 32 bytes of keystream block zero become a one-time Poly1305 key; payload
// keystream starts at block one.
//
// The core is the 20-round Salsa20 from golang.org/x/crypto.
type SalsaPoly struct {
	key     [32]byte
	counter [16]byte
	polyKey [32]byte
}

// NewSalsaPoly keys a stream with a per-packet key and an 8-byte IV.
func NewSalsaPoly(key *[32]byte, iv [8]byte) *SalsaPoly {
	sp := &SalsaPoly{key: *key}
	copy(sp.counter[:8], iv[:])
	var zero [32]byte
	salsa.XORKeyStream(sp.polyKey[:], zero[:], &sp.counter, &sp.key)
	return sp
}

// Keystream writes raw keystream, starting at block zero, into dst.
func (sp *SalsaPoly) Keystream(dst []byte) {
	ZeroBytes(dst)
	ctr := sp.counter
	salsa.XORKeyStream(dst, dst, &ctr, &sp.key)
}

// XORKeyStream encrypts or decrypts src into dst with the payload keystream.
// dst and src may overlap exactly.
func (sp *SalsaPoly) XORKeyStream(dst, src []byte) {
	ctr := sp.counter
	ctr[8] = 1
	salsa.XORKeyStream(dst, src, &ctr, &sp.key)
}

// Tag computes the Poly1305 tag of msg under the one-time key.
func (sp *SalsaPoly) Tag(msg []byte) [poly1305.TagSize]byte {
	var out [poly1305.TagSize]byte
	poly1305.Sum(&out, msg, &sp.polyKey)
	return out
}

// Wipe zeroes the key material held by the stream.
func (sp *SalsaPoly) Wipe() {
	ZeroBytes(sp.key[:])
	ZeroBytes(sp.polyKey[:])
}
