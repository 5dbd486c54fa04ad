// Package protocol implements the VL1 wire format: the 27-byte packet
// header, the 16-byte fragment header, verbs and their fixed message
// structures, the HELLO dictionary, and the stateless codec that seals and
// opens payloads under one of three cipher suites.
//
// Cipher suites are selected by bits 3-5 of the header flags byte:
//
//	CipherNoCryptPoly1305  plaintext with a truncated Poly1305 tag (HELLO only)
//	CipherSalsaPoly1305    Salsa20 with Poly1305 over the ciphertext
//	CipherAesGmacSiv       AES-GMAC-SIV; the tag carries the message ID
//
// Suites A and B key each packet with DerivePerPacketKey, which folds the
// packet ID, both addresses, the flags without the hop count and the packet
// length into the shared secret. Relays may therefore bump the hop count
// with IncrementHops without breaking authentication.
//
// Example:
//
//	hdr := protocol.PacketHeader{Destination: dst, Source: src}
//	hdr.Flags = hdr.Flags.WithCipher(protocol.CipherSalsaPoly1305)
//	if err := protocol.Seal(keys, &hdr, id, payload); err != nil {
//		return err
//	}
//	packet := append(hdr.AppendTo(nil), payload...)
//	protocol.SendFragmented(packet, limits.UDPDefaultMTU, emit)
package protocol
