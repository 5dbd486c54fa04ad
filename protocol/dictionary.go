package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/glycerine/greenpack/msgp"
	"github.com/opd-ai/vl1/limits"
)

// Dictionary is the key/value block carried encrypted inside HELLO and
// OK(HELLO). It is encoded as a MessagePack map of string keys to binary
// values, written in key order so encoding is deterministic.
type Dictionary map[string][]byte

// SetUint64 stores v as eight big-endian bytes.
func (d Dictionary) SetUint64(key string, v uint64) {
	d[key] = binary.BigEndian.AppendUint64(nil, v)
}

// Uint64 reads a value stored with SetUint64.
func (d Dictionary) Uint64(key string) (uint64, bool) {
	b, ok := d[key]
	if !ok || len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}

// Encode returns the MessagePack encoding of d.
func (d Dictionary) Encode() ([]byte, error) {
	if len(d) > limits.DictionaryEntriesMax {
		return nil, fmt.Errorf("%w: %d entries exceeds %d", ErrDictionary, len(d), limits.DictionaryEntriesMax)
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	w := msgp.NewWriter(&buf)
	if err := w.WriteMapHeader(uint32(len(keys))); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDictionary, err)
	}
	for _, k := range keys {
		if err := w.WriteString(k); err != nil {
			return nil, fmt.Errorf("%w: key %q: %w", ErrDictionary, k, err)
		}
		if err := w.WriteBytes(d[k]); err != nil {
			return nil, fmt.Errorf("%w: value %q: %w", ErrDictionary, k, err)
		}
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDictionary, err)
	}
	return buf.Bytes(), nil
}

// DecodeDictionary parses an encoded dictionary.
func DecodeDictionary(b []byte) (Dictionary, error) {
	r := msgp.NewReader(bytes.NewReader(b))
	n, err := r.ReadMapHeader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDictionary, err)
	}
	if n > limits.DictionaryEntriesMax {
		return nil, fmt.Errorf("%w: %d entries exceeds %d", ErrDictionary, n, limits.DictionaryEntriesMax)
	}
	d := make(Dictionary, n)
	for i := uint32(0); i < n; i++ {
		k, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d key: %w", ErrDictionary, i, err)
		}
		v, err := r.ReadBytes(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", ErrDictionary, k, err)
		}
		d[k] = v
	}
	return d, nil
}
