package peer

import (
	"errors"
	"fmt"

	"github.com/opd-ai/vl1/limits"
)

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid peer options")

// Options configures a Peer.
type Options struct {
	// MTU is the largest datagram handed to the host.
	MTU int
	// CipherPoolSize is the number of idle AES-GMAC-SIV instances each
	// secret keeps for reuse.
	CipherPoolSize int
	// Compression enables LZ4 compression of outbound payloads.
	Compression bool
	// PreferSalsaPoly1305 selects Salsa20/Poly1305 for every peer with a
	// known protocol version, unless the node is in FIPS mode.
	PreferSalsaPoly1305 bool
	// Diagnostics adds architecture and OS fields to HELLOs sent to roots.
	Diagnostics bool
}

// NewOptions creates a new default Options.
func NewOptions() *Options {
	return &Options{
		MTU:            limits.UDPDefaultMTU,
		CipherPoolSize: 8,
		Compression:    true,
		Diagnostics:    true,
	}
}

// Validate checks the options for consistency.
func (o *Options) Validate() error {
	if err := limits.ValidateMTU(o.MTU); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.CipherPoolSize < 1 {
		return fmt.Errorf("%w: cipher pool size %d", ErrInvalidOptions, o.CipherPoolSize)
	}
	return nil
}
