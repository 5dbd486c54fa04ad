package crypto

import (
	"bytes"
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalsaPolyRoundTrip(t *testing.T) {
	key := [32]byte{1, 2, 3}
	iv := [8]byte{9, 8, 7, 6, 5, 4, 3, 2}
	plaintext := bytes.Repeat([]byte("salsa"), 50)

	enc := NewSalsaPoly(&key, iv)
	ciphertext := make([]byte, len(plaintext))
	enc.XORKeyStream(ciphertext, plaintext)
	tag := enc.Tag(ciphertext)
	require.NotEqual(t, plaintext, ciphertext)

	dec := NewSalsaPoly(&key, iv)
	assert.Equal(t, tag, dec.Tag(ciphertext))
	out := make([]byte, len(ciphertext))
	dec.XORKeyStream(out, ciphertext)
	assert.Equal(t, plaintext, out)
}

func TestSalsaPolyPayloadStreamSkipsPolyBlock(t *testing.T) {
	key := [32]byte{4}
	iv := [8]byte{1}
	sp := NewSalsaPoly(&key, iv)

	block0 := make([]byte, 64)
	sp.Keystream(block0)
	assert.Equal(t, sp.polyKey[:], block0[:32])

	payloadStream := make([]byte, 64)
	sp.XORKeyStream(payloadStream, make([]byte, 64))
	assert.NotEqual(t, block0, payloadStream)
}

func TestSalsaPolyIVChangesTag(t *testing.T) {
	key := [32]byte{4}
	msg := []byte("message")
	a := NewSalsaPoly(&key, [8]byte{1}).Tag(msg)
	b := NewSalsaPoly(&key, [8]byte{2}).Tag(msg)
	assert.NotEqual(t, a, b)
}

func newTestSiv(t *testing.T, seed byte) *AesGmacSiv {
	t.Helper()
	s := testSecret(seed)
	siv, err := NewAesGmacSivFromSecret(&s)
	require.NoError(t, err)
	return siv
}

func TestAesGmacSivRoundTripRecoversMessageID(t *testing.T) {
	siv := newTestSiv(t, 3)
	aad := []byte("destinationsrcaf")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")
	const messageID = 0x0123456789abcdef

	ciphertext := make([]byte, len(plaintext))
	tag := siv.Seal(ciphertext, messageID, aad, plaintext)
	require.NotEqual(t, plaintext, ciphertext)

	out := make([]byte, len(ciphertext))
	id, ok := newTestSiv(t, 3).Open(out, tag, aad, ciphertext)
	require.True(t, ok)
	assert.Equal(t, uint64(messageID), id)
	assert.Equal(t, plaintext, out)
}

func TestAesGmacSivSealInPlace(t *testing.T) {
	siv := newTestSiv(t, 3)
	plaintext := []byte("in place")
	buf := append([]byte(nil), plaintext...)
	tag := siv.Seal(buf, 42, nil, buf)

	out := make([]byte, len(buf))
	id, ok := siv.Open(out, tag, nil, buf)
	require.True(t, ok)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, plaintext, out)
}

func TestAesGmacSivRejectsTampering(t *testing.T) {
	siv := newTestSiv(t, 3)
	aad := []byte("header")
	plaintext := []byte("payload bytes")
	ciphertext := make([]byte, len(plaintext))
	tag := siv.Seal(ciphertext, 7, aad, plaintext)
	out := make([]byte, len(ciphertext))

	t.Run("ciphertext", func(t *testing.T) {
		bad := append([]byte(nil), ciphertext...)
		bad[3] ^= 0x10
		_, ok := siv.Open(out, tag, aad, bad)
		assert.False(t, ok)
	})
	t.Run("tag", func(t *testing.T) {
		bad := tag
		bad[15] ^= 1
		_, ok := siv.Open(out, bad, aad, ciphertext)
		assert.False(t, ok)
	})
	t.Run("aad", func(t *testing.T) {
		_, ok := siv.Open(out, tag, []byte("HEADER"), ciphertext)
		assert.False(t, ok)
	})
	t.Run("wrong key", func(t *testing.T) {
		_, ok := newTestSiv(t, 4).Open(out, tag, aad, ciphertext)
		assert.False(t, ok)
	})
}

func TestAesCtrRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	c, err := NewAesCtr(key)
	require.NoError(t, err)

	assert.Error(t, c.Crypt([]byte("x")), "use before Init must fail")

	var iv [aes.BlockSize]byte
	iv[0] = 1
	msg := []byte("dictionary contents")
	buf := append([]byte(nil), msg...)

	c.Init(iv)
	require.NoError(t, c.Crypt(buf))
	assert.NotEqual(t, msg, buf)

	c.Init(iv)
	require.NoError(t, c.Crypt(buf))
	assert.Equal(t, msg, buf)
}

func TestNewAesCtrRejectsBadKey(t *testing.T) {
	_, err := NewAesCtr(make([]byte, 7))
	assert.Error(t, err)
}
