package protocol

import "errors"

var (
	// ErrMalformed indicates a structure that is too short or internally
	// inconsistent.
	ErrMalformed = errors.New("malformed packet")

	// ErrDictionary indicates a HELLO dictionary that could not be encoded
	// or decoded.
	ErrDictionary = errors.New("invalid dictionary")

	// ErrUnsupportedCipher indicates a cipher suite this codec cannot seal.
	ErrUnsupportedCipher = errors.New("unsupported cipher suite")
)
