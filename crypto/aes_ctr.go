package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// AesCtr is a reusable AES-CTR keystream. Init must be called with a fresh
// IV before each message; the stream state makes it unsafe for concurrent use.
type AesCtr struct {
	block  cipher.Block
	stream cipher.Stream
}

// NewAesCtr creates an AES-CTR instance from a 16, 24 or 32 byte key.
func NewAesCtr(key []byte) (*AesCtr, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-ctr: %w", err)
	}
	return &AesCtr{block: block}, nil
}

// Init resets the keystream to the given IV.
func (c *AesCtr) Init(iv [aes.BlockSize]byte) {
	c.stream = cipher.NewCTR(c.block, iv[:])
}

// Crypt encrypts or decrypts buf in place, continuing the current keystream.
func (c *AesCtr) Crypt(buf []byte) error {
	if c.stream == nil {
		return errors.New("aes-ctr: not initialized")
	}
	c.stream.XORKeyStream(buf, buf)
	return nil
}
