package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelloFixed(t *testing.T) {
	h := HelloFixed{
		Verb:            VerbHello | VerbFlagExtendedAuthentication,
		ProtocolVersion: ProtocolVersion,
		VersionMajor:    2,
		VersionMinor:    1,
		VersionRevision: 0x0304,
		Timestamp:       0x0102030405060708,
	}
	b := h.AppendTo(nil)
	require.Len(t, b, HelloFixedSize)
	assert.Equal(t, []byte{0x41, 20, 2, 1, 3, 4, 1, 2, 3, 4, 5, 6, 7, 8}, b)

	parsed, err := ParseHelloFixed(b)
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	_, err = ParseHelloFixed(b[:HelloFixedSize-1])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOkAndErrorHeaders(t *testing.T) {
	ok := OkHeader{Verb: VerbOK, InReVerb: VerbHello, InReMsgID: 0xa1a2a3a4a5a6a7a8}
	b := ok.AppendTo(nil)
	require.Len(t, b, OkHeaderSize)
	b = append(b, 0xee)

	parsed, rest, err := ParseOkHeader(b)
	require.NoError(t, err)
	assert.Equal(t, ok, parsed)
	assert.Equal(t, []byte{0xee}, rest)

	e := ErrorHeader{OkHeader: OkHeader{Verb: VerbError, InReVerb: VerbWhois, InReMsgID: 9}, ErrorCode: ErrorCodeObjectNotFound}
	eb := e.AppendTo(nil)
	require.Len(t, eb, ErrorHeaderSize)
	pe, rest, err := ParseErrorHeader(eb)
	require.NoError(t, err)
	assert.Equal(t, e, pe)
	assert.Empty(t, rest)

	_, _, err = ParseOkHeader(b[:OkHeaderSize-1])
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, err = ParseErrorHeader(eb[:ErrorHeaderSize-1])
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestHelloOkFields(t *testing.T) {
	f := HelloOkFields{TimestampEcho: 77, ProtocolVersion: 11, VersionMajor: 1, VersionMinor: 12, VersionRevision: 9}
	b := f.AppendTo(nil)
	require.Len(t, b, HelloOkFieldsSize)
	parsed, rest, err := ParseHelloOkFields(b)
	require.NoError(t, err)
	assert.Equal(t, f, parsed)
	assert.Empty(t, rest)
}

func TestVersionPacking(t *testing.T) {
	v := PackVersion(2, 1, 0x0304, 0x0506)
	assert.Equal(t, uint64(0x0002000103040506), v)
	major, minor, rev, build := UnpackVersion(v)
	assert.Equal(t, uint8(2), major)
	assert.Equal(t, uint8(1), minor)
	assert.Equal(t, uint16(0x0304), rev)
	assert.Equal(t, uint16(0x0506), build)
}

func TestSizedFields(t *testing.T) {
	b, err := AppendSized([]byte{0xaa}, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0, 5, 'h', 'e', 'l', 'l', 'o'}, b)

	field, rest, err := ReadSized(append(b[1:], 0xbb))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), field)
	assert.Equal(t, []byte{0xbb}, rest)

	_, _, err = ReadSized([]byte{0})
	assert.ErrorIs(t, err, ErrMalformed)
	_, _, err = ReadSized([]byte{0, 4, 1})
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = AppendSized(nil, make([]byte, 0x10000))
	assert.ErrorIs(t, err, ErrMalformed)
}
