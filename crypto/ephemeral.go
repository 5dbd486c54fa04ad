package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/sirupsen/logrus"
)

// X25519PublicKeySize and P521PublicKeySize are the encoded public key sizes
// of the two halves of an ephemeral key exchange.
const (
	X25519PublicKeySize = 32
	P521PublicKeySize   = 133
)

// ErrInvalidPublicKey is returned when a remote ephemeral public key cannot
// be parsed or produces a degenerate agreement.
var ErrInvalidPublicKey = errors.New("invalid ephemeral public key")

// EphemeralKeyPairs holds two independent key agreement key pairs, X25519
// and NIST P-521, used together so that the agreed secret survives a break
// of either curve.
type EphemeralKeyPairs struct {
	x25519 noise.DHKey
	p521   *ecdh.PrivateKey
}

// GenerateEphemeralKeyPairs creates fresh X25519 and P-521 key pairs.
func GenerateEphemeralKeyPairs() (*EphemeralKeyPairs, error) {
	log := logrus.WithField("function", "GenerateEphemeralKeyPairs")

	x, err := noise.DH25519.GenerateKeypair(rand.Reader)
	if err != nil {
		log.WithField("error", err.Error()).Error("X25519 key generation failed")
		return nil, fmt.Errorf("x25519 keygen: %w", err)
	}
	p, err := ecdh.P521().GenerateKey(rand.Reader)
	if err != nil {
		ZeroBytes(x.Private)
		log.WithField("error", err.Error()).Error("P-521 key generation failed")
		return nil, fmt.Errorf("p521 keygen: %w", err)
	}

	log.Debug("Ephemeral key pairs generated")
	return &EphemeralKeyPairs{x25519: x, p521: p}, nil
}

// X25519Public returns the X25519 public key.
func (e *EphemeralKeyPairs) X25519Public() []byte { return e.x25519.Public }

// P521Public returns the uncompressed P-521 public key.
func (e *EphemeralKeyPairs) P521Public() []byte { return e.p521.PublicKey().Bytes() }

// Agree runs both agreements against the remote public keys and returns
// the X25519 and P-521 shared values. Callers must wipe both.
func (e *EphemeralKeyPairs) Agree(remoteX25519, remoteP521 []byte) (x, p []byte, err error) {
	if len(remoteX25519) != X25519PublicKeySize {
		return nil, nil, fmt.Errorf("%w: x25519 length %d", ErrInvalidPublicKey, len(remoteX25519))
	}
	x, err = noise.DH25519.DH(e.x25519.Private, remoteX25519)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: x25519: %v", ErrInvalidPublicKey, err)
	}

	remote, err := ecdh.P521().NewPublicKey(remoteP521)
	if err != nil {
		ZeroBytes(x)
		return nil, nil, fmt.Errorf("%w: p521: %v", ErrInvalidPublicKey, err)
	}
	p, err = e.p521.ECDH(remote)
	if err != nil {
		ZeroBytes(x)
		return nil, nil, fmt.Errorf("%w: p521: %v", ErrInvalidPublicKey, err)
	}
	return x, p, nil
}

// Wipe zeroes the X25519 private key. The P-521 private key is held by
// crypto/ecdh and is dropped instead.
func (e *EphemeralKeyPairs) Wipe() {
	ZeroBytes(e.x25519.Private)
	e.p521 = nil
}
