package protocol

import (
	"encoding/binary"
	"fmt"
)

// Sizes of the fixed message structures, verb byte included.
const (
	HelloFixedSize    = 14
	OkHeaderSize      = 10
	ErrorHeaderSize   = 11
	HelloOkFieldsSize = 13
)

// HelloFixed is the plaintext start of a HELLO payload.
type HelloFixed struct {
	Verb            Verb
	ProtocolVersion uint8
	VersionMajor    uint8
	VersionMinor    uint8
	VersionRevision uint16
	Timestamp       uint64
}

// AppendTo appends the encoded fields to b.
func (h *HelloFixed) AppendTo(b []byte) []byte {
	b = append(b, byte(h.Verb), h.ProtocolVersion, h.VersionMajor, h.VersionMinor)
	b = binary.BigEndian.AppendUint16(b, h.VersionRevision)
	return binary.BigEndian.AppendUint64(b, h.Timestamp)
}

// ParseHelloFixed reads the fixed fields from the start of a HELLO payload.
func ParseHelloFixed(b []byte) (HelloFixed, error) {
	if len(b) < HelloFixedSize {
		return HelloFixed{}, fmt.Errorf("%w: hello needs %d bytes, have %d", ErrMalformed, HelloFixedSize, len(b))
	}
	return HelloFixed{
		Verb:            Verb(b[0]),
		ProtocolVersion: b[1],
		VersionMajor:    b[2],
		VersionMinor:    b[3],
		VersionRevision: binary.BigEndian.Uint16(b[4:6]),
		Timestamp:       binary.BigEndian.Uint64(b[6:14]),
	}, nil
}

// OkHeader starts every OK payload.
type OkHeader struct {
	Verb      Verb
	InReVerb  Verb
	InReMsgID uint64
}

// AppendTo appends the encoded header to b.
func (h *OkHeader) AppendTo(b []byte) []byte {
	b = append(b, byte(h.Verb), byte(h.InReVerb))
	return binary.BigEndian.AppendUint64(b, h.InReMsgID)
}

// ParseOkHeader reads an OK header and returns the bytes after it.
func ParseOkHeader(b []byte) (OkHeader, []byte, error) {
	if len(b) < OkHeaderSize {
		return OkHeader{}, nil, fmt.Errorf("%w: ok header needs %d bytes, have %d", ErrMalformed, OkHeaderSize, len(b))
	}
	return OkHeader{
		Verb:      Verb(b[0]),
		InReVerb:  Verb(b[1]),
		InReMsgID: binary.BigEndian.Uint64(b[2:10]),
	}, b[OkHeaderSize:], nil
}

// ErrorHeader starts every ERROR payload.
type ErrorHeader struct {
	OkHeader
	ErrorCode uint8
}

// AppendTo appends the encoded header to b.
func (h *ErrorHeader) AppendTo(b []byte) []byte {
	return append(h.OkHeader.AppendTo(b), h.ErrorCode)
}

// ParseErrorHeader reads an ERROR header and returns the bytes after it.
func ParseErrorHeader(b []byte) (ErrorHeader, []byte, error) {
	if len(b) < ErrorHeaderSize {
		return ErrorHeader{}, nil, fmt.Errorf("%w: error header needs %d bytes, have %d", ErrMalformed, ErrorHeaderSize, len(b))
	}
	ok, _, _ := ParseOkHeader(b)
	return ErrorHeader{OkHeader: ok, ErrorCode: b[OkHeaderSize]}, b[ErrorHeaderSize:], nil
}

// HelloOkFields follows the OK header in a reply to HELLO.
type HelloOkFields struct {
	TimestampEcho   uint64
	ProtocolVersion uint8
	VersionMajor    uint8
	VersionMinor    uint8
	VersionRevision uint16
}

// AppendTo appends the encoded fields to b.
func (f *HelloOkFields) AppendTo(b []byte) []byte {
	b = binary.BigEndian.AppendUint64(b, f.TimestampEcho)
	b = append(b, f.ProtocolVersion, f.VersionMajor, f.VersionMinor)
	return binary.BigEndian.AppendUint16(b, f.VersionRevision)
}

// ParseHelloOkFields reads the fields and returns the bytes after them.
func ParseHelloOkFields(b []byte) (HelloOkFields, []byte, error) {
	if len(b) < HelloOkFieldsSize {
		return HelloOkFields{}, nil, fmt.Errorf("%w: ok(hello) needs %d bytes, have %d", ErrMalformed, HelloOkFieldsSize, len(b))
	}
	return HelloOkFields{
		TimestampEcho:   binary.BigEndian.Uint64(b[0:8]),
		ProtocolVersion: b[8],
		VersionMajor:    b[9],
		VersionMinor:    b[10],
		VersionRevision: binary.BigEndian.Uint16(b[11:13]),
	}, b[HelloOkFieldsSize:], nil
}

// PackVersion packs a software version into the 4x16-bit form peers keep.
func PackVersion(major, minor uint8, revision, build uint16) uint64 {
	return uint64(major)<<48 | uint64(minor)<<32 | uint64(revision)<<16 | uint64(build)
}

// UnpackVersion reverses PackVersion.
func UnpackVersion(v uint64) (major, minor uint8, revision, build uint16) {
	return uint8(v >> 48), uint8(v >> 32), uint16(v >> 16), uint16(v)
}

// ReadSized reads a big-endian u16 length followed by that many bytes and
// returns the field and the bytes after it.
func ReadSized(b []byte) ([]byte, []byte, error) {
	if len(b) < 2 {
		return nil, nil, fmt.Errorf("%w: missing length prefix", ErrMalformed)
	}
	n := int(binary.BigEndian.Uint16(b))
	if len(b) < 2+n {
		return nil, nil, fmt.Errorf("%w: field of %d bytes truncated at %d", ErrMalformed, n, len(b)-2)
	}
	return b[2 : 2+n], b[2+n:], nil
}

// AppendSized appends a big-endian u16 length followed by field.
func AppendSized(b, field []byte) ([]byte, error) {
	if len(field) > 0xffff {
		return b, fmt.Errorf("%w: field of %d bytes exceeds u16 length", ErrMalformed, len(field))
	}
	b = binary.BigEndian.AppendUint16(b, uint16(len(field)))
	return append(b, field...), nil
}
