package protocol

import (
	"fmt"

	"github.com/opd-ai/vl1/limits"
	"github.com/opd-ai/vl1/pool"
	"github.com/pierrec/lz4/v4"
)

// lz4 compressors carry a 64 KiB hash table; keep a few around.
var compressors = pool.New(4, func() *lz4.Compressor { return new(lz4.Compressor) }, nil)

// CompressPayload compresses the bytes after the verb with LZ4 and sets
// VerbFlagCompressed. It returns payload unchanged and false when the
// payload is below limits.CompressionThreshold or does not shrink.
func CompressPayload(payload []byte) ([]byte, bool) {
	if len(payload) < 1+limits.CompressionThreshold {
		return payload, false
	}
	body := payload[1:]
	out := make([]byte, 1+lz4.CompressBlockBound(len(body)))

	c := compressors.Get()
	n, err := c.Value().CompressBlock(body, out[1:])
	c.Release()
	if err != nil || n == 0 || n >= len(body) {
		return payload, false
	}
	out[0] = payload[0] | byte(VerbFlagCompressed)
	return out[:1+n], true
}

// DecompressPayload expands a payload whose verb carries
// VerbFlagCompressed. The result keeps the verb byte, with the flag still
// set, and is bounded by limits.PacketSizeMax.
func DecompressPayload(payload []byte) ([]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: compressed payload of %d bytes", ErrMalformed, len(payload))
	}
	out := make([]byte, limits.PacketSizeMax)
	out[0] = payload[0]
	n, err := lz4.UncompressBlock(payload[1:], out[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %w", ErrMalformed, err)
	}
	return out[:1+n], nil
}
