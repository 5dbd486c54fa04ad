package crypto

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret(seed byte) Secret {
	var s Secret
	for i := range s {
		s[i] = seed + byte(i)
	}
	return s
}

func TestSecretDeriveKeyIsDeterministic(t *testing.T) {
	s := testSecret(1)
	a := s.DeriveKey(KeyUsageHMAC)
	b := s.DeriveKey(KeyUsageHMAC)
	assert.True(t, a.Equal(&b))
	assert.False(t, a.IsZero())
}

func TestSecretDeriveKeySeparatesUsages(t *testing.T) {
	s := testSecret(1)
	usages := []byte{
		KeyUsageHMAC,
		KeyUsageAesGmacSivK0,
		KeyUsageAesGmacSivK1,
		KeyUsageHelloDictionaryEncrypt,
	}

	seen := make(map[Secret]byte)
	for _, u := range usages {
		k := s.DeriveKey(u)
		prev, dup := seen[k]
		require.False(t, dup, "usage %q collides with %q", u, prev)
		seen[k] = u
	}
}

func TestSecretFormatIsRedacted(t *testing.T) {
	s := testSecret(0xaa)
	for _, verb := range []string{"%v", "%+v", "%#v", "%s", "%x", "%X", "%q"} {
		out := fmt.Sprintf(verb, s)
		assert.Equal(t, redacted, out, "verb %s", verb)
	}
	assert.Equal(t, redacted, fmt.Sprint(&s))
}

func TestSecretWipe(t *testing.T) {
	s := testSecret(7)
	require.False(t, s.IsZero())
	s.Wipe()
	assert.True(t, s.IsZero())
}

func TestHMACSHA384(t *testing.T) {
	key := []byte("hmac key")
	tag := HMACSHA384(key, []byte("hello "), []byte("world"))

	assert.True(t, VerifyHMACSHA384(key, tag[:], []byte("hello world")))
	assert.False(t, VerifyHMACSHA384([]byte("other key"), tag[:], []byte("hello world")))
	assert.False(t, VerifyHMACSHA384(key, tag[:47], []byte("hello world")))

	tag[0] ^= 1
	assert.False(t, VerifyHMACSHA384(key, tag[:], []byte("hello world")))
}
