// Package identity provides node identities: a 40-bit address bound to a
// long-term X25519 key, with the agreement that yields the 48-byte static
// secret two peers share.
package identity

import (
	"crypto/sha512"
	"errors"
	"fmt"

	"github.com/glycerine/blake3"
	"github.com/opd-ai/vl1/crypto"
	"github.com/opd-ai/vl1/protocol"
)

// Identity is what the peer layer needs from a node identity.
type Identity interface {
	Address() protocol.Address
	// Marshal appends the public wire encoding to b.
	Marshal(b []byte) []byte
	// Agree derives the static secret shared with other. It fails when
	// this identity has no private key or other is not compatible.
	Agree(other Identity) (crypto.Secret, bool)
}

const (
	typeX25519 = 0
	// MarshalSize is the encoded size of an X25519 identity.
	MarshalSize = protocol.AddressSize + 1 + 32 + 1
)

// ErrInvalidIdentity is returned when an identity cannot be decoded or
// its address does not match its key.
var ErrInvalidIdentity = errors.New("invalid identity")

// X25519 is an identity whose address is derived from an X25519 public key.
type X25519 struct {
	address protocol.Address
	public  [32]byte
	keys    *crypto.KeyPair
}

var _ Identity = (*X25519)(nil)

// Generate creates an identity with a fresh key pair. Keys whose address
// would be reserved or zero are discarded.
func Generate() (*X25519, error) {
	for {
		kp, err := crypto.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("generate identity: %w", err)
		}
		addr := deriveAddress(kp.Public)
		if validAddress(addr) {
			return &X25519{address: addr, public: kp.Public, keys: kp}, nil
		}
		_ = crypto.WipeKeyPair(kp)
	}
}

// FromPrivateKey rebuilds an identity from its X25519 private key.
func FromPrivateKey(private [32]byte) (*X25519, error) {
	kp, err := crypto.FromSecretKey(private)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	addr := deriveAddress(kp.Public)
	if !validAddress(addr) {
		_ = crypto.WipeKeyPair(kp)
		return nil, fmt.Errorf("%w: address %s", ErrInvalidIdentity, addr)
	}
	return &X25519{address: addr, public: kp.Public, keys: kp}, nil
}

// FromPublicKey returns a public-only identity.
func FromPublicKey(public [32]byte) (*X25519, error) {
	addr := deriveAddress(public)
	if !validAddress(addr) {
		return nil, fmt.Errorf("%w: address %s", ErrInvalidIdentity, addr)
	}
	return &X25519{address: addr, public: public}, nil
}

// Unmarshal decodes an identity from the start of b and returns the bytes
// after it.
func Unmarshal(b []byte) (*X25519, []byte, error) {
	if len(b) < MarshalSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrInvalidIdentity, len(b))
	}
	if b[protocol.AddressSize] != typeX25519 || b[MarshalSize-1] != 0 {
		return nil, nil, fmt.Errorf("%w: unsupported encoding", ErrInvalidIdentity)
	}
	var pub [32]byte
	copy(pub[:], b[protocol.AddressSize+1:])
	id, err := FromPublicKey(pub)
	if err != nil {
		return nil, nil, err
	}
	if protocol.Address(b[:protocol.AddressSize]) != id.address {
		return nil, nil, fmt.Errorf("%w: address does not match key", ErrInvalidIdentity)
	}
	return id, b[MarshalSize:], nil
}

func (id *X25519) Address() protocol.Address { return id.address }

// PublicKey returns the X25519 public key.
func (id *X25519) PublicKey() [32]byte { return id.public }

// PrivateKey returns the X25519 private key, if the identity has one.
func (id *X25519) PrivateKey() ([32]byte, bool) {
	if id.keys == nil {
		return [32]byte{}, false
	}
	return id.keys.Private, true
}

// HasPrivate reports whether the identity can agree.
func (id *X25519) HasPrivate() bool { return id.keys != nil }

// Public returns a copy without the private key.
func (id *X25519) Public() *X25519 { return &X25519{address: id.address, public: id.public} }

// Marshal appends address, type, public key and a zero private-key length.
func (id *X25519) Marshal(b []byte) []byte {
	b = append(b, id.address[:]...)
	b = append(b, typeX25519)
	b = append(b, id.public[:]...)
	return append(b, 0)
}

// Agree hashes the X25519 shared point with SHA-384.
func (id *X25519) Agree(other Identity) (crypto.Secret, bool) {
	o, ok := other.(*X25519)
	if !ok || id.keys == nil {
		return crypto.Secret{}, false
	}
	shared, err := crypto.DeriveSharedSecret(o.public, id.keys.Private)
	if err != nil {
		return crypto.Secret{}, false
	}
	defer crypto.ZeroBytes(shared[:])
	return crypto.Secret(sha512.Sum384(shared[:])), true
}

func (id *X25519) String() string { return id.address.String() }

func deriveAddress(public [32]byte) protocol.Address {
	h := blake3.New(32, nil)
	h.Write(public[:])
	sum := h.Sum(nil)
	var addr protocol.Address
	copy(addr[:], sum)
	return addr
}

func validAddress(a protocol.Address) bool {
	return !a.IsReserved() && a != (protocol.Address{})
}
