package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// AesGmacSivTagSize is the size of the synthetic tag.
const AesGmacSivTagSize = 16

// AesGmacSiv is an AES-GMAC-SIV instance: a GMAC under K0 over AAD and
// plaintext, keyed by the 64-bit message ID, is folded with the message ID
// into one AES block and encrypted under K1 to form a 16-byte synthetic
// tag. The tag is the AES-CTR IV for the payload, so the message ID never
// travels in the clear and is recovered by decrypting the tag.
//
// Instances hold scratch state and are not safe for concurrent use.
type AesGmacSiv struct {
	gmac    cipher.AEAD
	k1      cipher.Block
	scratch []byte
}

// NewAesGmacSiv creates an instance from two 32-byte AES-256 keys.
func NewAesGmacSiv(k0, k1 []byte) (*AesGmacSiv, error) {
	b0, err := aes.NewCipher(k0)
	if err != nil {
		return nil, fmt.Errorf("aes-gmac-siv k0: %w", err)
	}
	gmac, err := cipher.NewGCM(b0)
	if err != nil {
		return nil, fmt.Errorf("aes-gmac-siv gcm: %w", err)
	}
	b1, err := aes.NewCipher(k1)
	if err != nil {
		return nil, fmt.Errorf("aes-gmac-siv k1: %w", err)
	}
	return &AesGmacSiv{gmac: gmac, k1: b1}, nil
}

// NewAesGmacSivFromSecret derives K0 and K1 from secret.
func NewAesGmacSivFromSecret(secret *Secret) (*AesGmacSiv, error) {
	k0 := secret.DeriveKey(KeyUsageAesGmacSivK0)
	k1 := secret.DeriveKey(KeyUsageAesGmacSivK1)
	defer k0.Wipe()
	defer k1.Wipe()
	return NewAesGmacSiv(k0[:32], k1[:32])
}

// Seal encrypts plaintext into dst, which must be at least as long, and
// returns the synthetic tag. dst and plaintext may overlap exactly.
func (a *AesGmacSiv) Seal(dst []byte, messageID uint64, aad, plaintext []byte) [AesGmacSivTagSize]byte {
	mac := a.mac(messageID, aad, plaintext)

	var block, tag [AesGmacSivTagSize]byte
	binary.BigEndian.PutUint64(block[:8], messageID)
	copy(block[8:], mac[:8])
	a.k1.Encrypt(tag[:], block[:])

	a.ctr(tag, dst, plaintext)
	return tag
}

// Open decrypts ciphertext into dst and authenticates it against tag and
// aad. On success it returns the message ID carried inside the tag. dst
// must not overlap ciphertext, since a failed open leaves garbage in dst.
func (a *AesGmacSiv) Open(dst []byte, tag [AesGmacSivTagSize]byte, aad, ciphertext []byte) (uint64, bool) {
	a.ctr(tag, dst, ciphertext)

	var block [AesGmacSivTagSize]byte
	a.k1.Decrypt(block[:], tag[:])
	messageID := binary.BigEndian.Uint64(block[:8])

	mac := a.mac(messageID, aad, dst[:len(ciphertext)])
	if subtle.ConstantTimeCompare(mac[:8], block[8:]) != 1 {
		return 0, false
	}
	return messageID, true
}

// Reset clears scratch state between borrowers.
func (a *AesGmacSiv) Reset() {
	ZeroBytes(a.scratch)
	a.scratch = a.scratch[:0]
}

func (a *AesGmacSiv) mac(messageID uint64, aad, msg []byte) [AesGmacSivTagSize]byte {
	var nonce [12]byte
	binary.BigEndian.PutUint64(nonce[:8], messageID)

	a.scratch = append(a.scratch[:0], aad...)
	a.scratch = append(a.scratch, msg...)

	var out [AesGmacSivTagSize]byte
	a.gmac.Seal(out[:0], nonce[:], nil, a.scratch)
	return out
}

func (a *AesGmacSiv) ctr(tag [AesGmacSivTagSize]byte, dst, src []byte) {
	iv := tag
	iv[12] &= 0x7f
	cipher.NewCTR(a.k1, iv[:]).XORKeyStream(dst[:len(src)], src)
}
