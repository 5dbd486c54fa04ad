package crypto

import (
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// SecretSize is the length of every shared secret and derived key.
const SecretSize = 48

// Key usage labels for DeriveKey. Each derived key serves exactly one purpose.
const (
	KeyUsageHMAC                   byte = 'M'
	KeyUsageAesGmacSivK0           byte = '0'
	KeyUsageAesGmacSivK1           byte = '1'
	KeyUsageHelloDictionaryEncrypt byte = 'H'
)

const redacted = "Secret(redacted)"

// Secret is 48 bytes of keying material. It formats as a redacted
// placeholder with every fmt verb so it cannot end up in a log line.
type Secret [SecretSize]byte

// String returns a redacted placeholder.
func (Secret) String() string { return redacted }

// GoString returns a redacted placeholder.
func (Secret) GoString() string { return redacted }

// Format implements fmt.Formatter.
func (Secret) Format(f fmt.State, _ rune) { _, _ = io.WriteString(f, redacted) }

// Equal compares two secrets in constant time.
func (s *Secret) Equal(other *Secret) bool {
	return subtle.ConstantTimeCompare(s[:], other[:]) == 1
}

// IsZero reports whether every byte of the secret is zero.
func (s *Secret) IsZero() bool {
	var zero Secret
	return s.Equal(&zero)
}

// DeriveKey expands the secret into a new 48-byte key bound to usage,
// using HKDF-Expand with HMAC-SHA384.
func (s *Secret) DeriveKey(usage byte) Secret {
	var out Secret
	r := hkdf.Expand(sha512.New384, s[:], []byte{'V', 'L', '1', usage})
	if _, err := io.ReadFull(r, out[:]); err != nil {
		// HKDF can produce 255*48 bytes; 48 never fails.
		panic(fmt.Sprintf("hkdf expand: %v", err))
	}
	return out
}

// Wipe zeroes the secret in place.
func (s *Secret) Wipe() {
	ZeroBytes(s[:])
}
