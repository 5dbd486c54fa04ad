package peer

import (
	"fmt"
	"sync/atomic"

	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/pool"
	"github.com/opd-ai/vl1/protocol"
)

// DurableSecret is the creation marker of a secret that never expires.
const DurableSecret int64 = -1

// SecretMaterial is a shared secret together with reusable cipher state
// keyed from it. The secret bytes never change after construction, so a
// *SecretMaterial may be shared freely.
type SecretMaterial struct {
	createTicks  int64
	encryptCount atomic.Uint64
	secret       crypto.Secret
	sivs         *pool.Pool[*crypto.AesGmacSiv]
}

// NewSecretMaterial wraps secret. createTicks is DurableSecret for the
// static secret. poolSize bounds the idle cipher instances kept.
func NewSecretMaterial(createTicks int64, secret crypto.Secret, poolSize int) (*SecretMaterial, error) {
	if _, err := crypto.NewAesGmacSivFromSecret(&secret); err != nil {
		return nil, fmt.Errorf("secret material: %w", err)
	}
	sm := &SecretMaterial{createTicks: createTicks, secret: secret}
	sm.sivs = pool.New(poolSize, func() *crypto.AesGmacSiv {
		// Keys of a validated secret always have a valid length.
		siv, err := crypto.NewAesGmacSivFromSecret(&sm.secret)
		if err != nil {
			panic(err)
		}
		return siv
	}, (*crypto.AesGmacSiv).Reset)
	return sm, nil
}

// CreateTicks returns the creation marker.
func (s *SecretMaterial) CreateTicks() int64 { return s.createTicks }

// IsDurable reports whether this is a static secret.
func (s *SecretMaterial) IsDurable() bool { return s.createTicks == DurableSecret }

// EncryptCount returns how many packets have been sealed with this secret.
func (s *SecretMaterial) EncryptCount() uint64 { return s.encryptCount.Load() }

// UseForEncrypt seals payload in place under the suite in hdr.Flags.
func (s *SecretMaterial) UseForEncrypt(hdr *protocol.PacketHeader, messageID uint64, payload []byte) error {
	s.encryptCount.Add(1)
	g := s.sivs.Get()
	defer g.Release()
	return protocol.Seal(protocol.Keys{Secret: &s.secret, Siv: g.Value()}, hdr, messageID, payload)
}

// UseForDecrypt opens payload. It returns the plaintext and the message ID
// it was sealed with, or false without saying why.
func (s *SecretMaterial) UseForDecrypt(hdr *protocol.PacketHeader, payload []byte) ([]byte, uint64, bool) {
	g := s.sivs.Get()
	defer g.Release()
	return protocol.Open(protocol.Keys{Secret: &s.secret, Siv: g.Value()}, hdr, payload)
}
