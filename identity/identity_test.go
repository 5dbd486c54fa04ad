package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndAgree(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.Address(), b.Address())
	assert.False(t, a.Address().IsReserved())

	ab, ok := a.Agree(b.Public())
	require.True(t, ok)
	ba, ok := b.Agree(a.Public())
	require.True(t, ok)
	assert.True(t, ab.Equal(&ba))
	assert.False(t, ab.IsZero())

	c, err := Generate()
	require.NoError(t, err)
	ac, ok := a.Agree(c)
	require.True(t, ok)
	assert.False(t, ab.Equal(&ac))
}

func TestAgreeRequiresPrivateKey(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	_, ok := a.Public().Agree(b)
	assert.False(t, ok)
	assert.False(t, a.Public().HasPrivate())
	assert.True(t, a.HasPrivate())
}

func TestMarshalRoundTrip(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)

	b := a.Marshal([]byte{0xee})
	require.Len(t, b, 1+MarshalSize)

	got, rest, err := Unmarshal(append(b[1:], 0x01))
	require.NoError(t, err)
	assert.Equal(t, a.Address(), got.Address())
	assert.Equal(t, a.PublicKey(), got.PublicKey())
	assert.False(t, got.HasPrivate())
	assert.Equal(t, []byte{0x01}, rest)
}

func TestUnmarshalErrors(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	good := a.Marshal(nil)

	_, _, err = Unmarshal(good[:MarshalSize-1])
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	badAddr := append([]byte(nil), good...)
	badAddr[0] ^= 0x01
	if badAddr[0] == 0xff {
		badAddr[0] = 0x00
	}
	_, _, err = Unmarshal(badAddr)
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	badType := append([]byte(nil), good...)
	badType[5] = 1
	_, _, err = Unmarshal(badType)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestFromPrivateKey(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	private, ok := id.PrivateKey()
	require.True(t, ok)

	rebuilt, err := FromPrivateKey(private)
	require.NoError(t, err)
	assert.Equal(t, id.Address(), rebuilt.Address())
	assert.Equal(t, id.PublicKey(), rebuilt.PublicKey())
	assert.True(t, rebuilt.HasPrivate())

	_, ok = id.Public().PrivateKey()
	assert.False(t, ok)

	_, err = FromPrivateKey([32]byte{})
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}
