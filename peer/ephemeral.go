package peer

import (
	"errors"
	"fmt"

	"github.com/glycerine/blake3"
	"github.com/opd-ai/vl1/crypto"
)

// ErrAgreementFailed is returned when an ephemeral key agreement fails.
var ErrAgreementFailed = errors.New("ephemeral agreement failed")

// PublicKeyDigestSize is the size of an EphemeralSession public key digest.
const PublicKeyDigestSize = 48

// EphemeralSession is a key pair offered to a peer to establish a forward
// secret session. It holds an X25519 and a P-521 key pair; both must be
// broken to recover the session secret.
type EphemeralSession struct {
	createTicks     int64
	publicKeyDigest [PublicKeyDigestSize]byte
	keys            *crypto.EphemeralKeyPairs
}

// NewEphemeralSession generates fresh key pairs.
func NewEphemeralSession(ticks int64) (*EphemeralSession, error) {
	keys, err := crypto.GenerateEphemeralKeyPairs()
	if err != nil {
		return nil, fmt.Errorf("ephemeral session: %w", err)
	}
	e := &EphemeralSession{createTicks: ticks, keys: keys}
	e.publicKeyDigest = publicKeyDigest(keys.X25519Public(), keys.P521Public())
	return e, nil
}

// publicKeyDigest is the BLAKE3-384 digest of an X25519 and a P-521
// public key.
func publicKeyDigest(x25519, p521 []byte) [PublicKeyDigestSize]byte {
	var out [PublicKeyDigestSize]byte
	h := blake3.New(PublicKeyDigestSize, nil)
	h.Write(x25519)
	h.Write(p521)
	copy(out[:], h.Sum(nil))
	return out
}

// CreateTicks returns when the session was generated.
func (e *EphemeralSession) CreateTicks() int64 { return e.createTicks }

// PublicKeyDigest identifies the public half of the session.
func (e *EphemeralSession) PublicKeyDigest() [PublicKeyDigestSize]byte { return e.publicKeyDigest }

// X25519Public returns the X25519 public key.
func (e *EphemeralSession) X25519Public() []byte { return e.keys.X25519Public() }

// P521Public returns the uncompressed P-521 public key.
func (e *EphemeralSession) P521Public() []byte { return e.keys.P521Public() }

// Agree combines both shared values with the static secret:
// HMAC-SHA384(static, x25519 || p521). Mixing in the static secret binds
// the session to the two long-term identities.
func (e *EphemeralSession) Agree(remoteX25519, remoteP521 []byte, static *crypto.Secret) (crypto.Secret, error) {
	x, p, err := e.keys.Agree(remoteX25519, remoteP521)
	if err != nil {
		return crypto.Secret{}, fmt.Errorf("%w: %w", ErrAgreementFailed, err)
	}
	defer crypto.ZeroBytes(x)
	defer crypto.ZeroBytes(p)
	return crypto.Secret(crypto.HMACSHA384(static[:], x, p)), nil
}

// Destroy wipes the private keys.
func (e *EphemeralSession) Destroy() { e.keys.Wipe() }
