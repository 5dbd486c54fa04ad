package crypto

import (
	"errors"
	"runtime"
)

// SecureWipe zeroes a byte slice holding sensitive data. It returns an
// error if the slice is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("cannot wipe nil data")
	}
	clear(data)
	runtime.KeepAlive(data)
	return nil
}

// ZeroBytes is SecureWipe without the nil check.
func ZeroBytes(data []byte) {
	clear(data)
	runtime.KeepAlive(data)
}

// WipeKeyPair zeroes the private half of a KeyPair.
func WipeKeyPair(kp *KeyPair) error {
	if kp == nil {
		return errors.New("cannot wipe nil KeyPair")
	}
	return SecureWipe(kp.Private[:])
}
