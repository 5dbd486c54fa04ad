// Package crypto implements the cryptographic compositions used by the VL1
// peer session layer.
//
// Nothing here is a primitive written from scratch: AES, GCM, SHA-384 and
// HMAC come from the standard library; Salsa20, Poly1305, HKDF and X25519
// from golang.org/x/crypto; the ephemeral X25519 half from flynn/noise.
//
// # Core Types
//
//   - [Secret]: 48 bytes of keying material. Formats as a redacted
//     placeholder and derives purpose-bound keys with [Secret.DeriveKey].
//   - [SalsaPoly]: per-packet Salsa20 keystream whose first block yields a
//     one-time Poly1305 key.
//   - [AesGmacSiv]: AES-GMAC-SIV with a 16-byte synthetic tag that also
//     carries the encrypted 64-bit message ID.
//   - [AesCtr]: AES-CTR keystream used to hide the HELLO dictionary.
//   - [EphemeralKeyPairs]: paired X25519 and P-521 key agreement.
//   - [KeyPair]: a long-term Curve25519 key pair.
//
// # Key Derivation
//
// Each key has one purpose, selected by a label:
//
//	hmacKey := static.DeriveKey(crypto.KeyUsageHMAC)
//	siv, _ := crypto.NewAesGmacSivFromSecret(&static)
//
// # Secure Memory Handling
//
// Sensitive buffers should be wiped after use:
//
//	defer crypto.ZeroBytes(shared)
//	defer secret.Wipe()
//
// # Thread Safety
//
// [Secret] values are immutable once built and can be shared. [SalsaPoly],
// [AesGmacSiv] and [AesCtr] carry per-message state and must be used by
// one goroutine at a time; the peer package pools or locks them.
package crypto
