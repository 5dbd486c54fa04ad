package protocol

import (
	"fmt"
	"testing"

	"github.com/opd-ai/vl1/limits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryRoundTrip(t *testing.T) {
	d := Dictionary{
		DictKeyInstanceID: {1, 2, 3, 4, 5, 6, 7, 8},
		DictKeyLocator:    []byte("locator"),
		DictKeySysArch:    []byte("amd64"),
		"empty":           {},
	}
	d.SetUint64(DictKeyClock, 1700000000123)

	enc, err := d.Encode()
	require.NoError(t, err)

	again, err := d.Encode()
	require.NoError(t, err)
	assert.Equal(t, enc, again, "encoding is deterministic")

	got, err := DecodeDictionary(enc)
	require.NoError(t, err)
	require.Len(t, got, len(d))
	for k, v := range d {
		assert.Equal(t, len(v), len(got[k]), k)
		if len(v) > 0 {
			assert.Equal(t, v, got[k], k)
		}
	}
	clock, ok := got.Uint64(DictKeyClock)
	require.True(t, ok)
	assert.Equal(t, uint64(1700000000123), clock)

	_, ok = got.Uint64(DictKeyLocator)
	assert.False(t, ok)
	_, ok = got.Uint64("missing")
	assert.False(t, ok)
}

func TestDictionaryLimits(t *testing.T) {
	d := Dictionary{}
	for i := 0; i <= limits.DictionaryEntriesMax; i++ {
		d[fmt.Sprintf("k%d", i)] = []byte{byte(i)}
	}
	_, err := d.Encode()
	assert.ErrorIs(t, err, ErrDictionary)
}

func TestDecodeDictionaryMalformed(t *testing.T) {
	enc, err := Dictionary{DictKeyInstanceID: {1, 2, 3}}.Encode()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   []byte
	}{
		{"empty", nil},
		{"truncated", enc[:len(enc)-1]},
		{"not a map", []byte{0xc4, 0x01, 0x00}},
		{"oversized map header", []byte{0xde, 0xff, 0xff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDictionary(tt.in)
			assert.ErrorIs(t, err, ErrDictionary)
		})
	}
}
