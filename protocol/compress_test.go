package protocol

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressRoundTrip(t *testing.T) {
	payload := append([]byte{byte(VerbFrame)}, bytes.Repeat([]byte("compressible "), 100)...)

	compressed, ok := CompressPayload(payload)
	require.True(t, ok)
	assert.Less(t, len(compressed), len(payload))
	assert.True(t, Verb(compressed[0]).Compressed())
	assert.Equal(t, VerbFrame, Verb(compressed[0]).Bare())

	out, err := DecompressPayload(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload[1:], out[1:])
	assert.Equal(t, VerbFrame, Verb(out[0]).Bare())
}

func TestCompressSkips(t *testing.T) {
	short := append([]byte{byte(VerbFrame)}, bytes.Repeat([]byte{0}, 20)...)
	out, ok := CompressPayload(short)
	assert.False(t, ok)
	assert.Equal(t, short, out)

	random := make([]byte, 1000)
	_, err := rand.Read(random)
	require.NoError(t, err)
	random[0] = byte(VerbFrame)
	out, ok = CompressPayload(random)
	assert.False(t, ok)
	assert.Equal(t, random, out)
}

func TestDecompressMalformed(t *testing.T) {
	_, err := DecompressPayload([]byte{byte(VerbFrame | VerbFlagCompressed)})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecompressPayload([]byte{byte(VerbFrame | VerbFlagCompressed), 0xf0, 0x01})
	assert.ErrorIs(t, err, ErrMalformed)
}
