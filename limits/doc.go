// Package limits provides centralized size constants and validation functions
// for the VL1 peer protocol.
//
// # Size Hierarchy
//
//   - UDPDefaultMTU (1432 bytes): one datagram on the wire. Larger packets are
//     split into a head datagram and fragments.
//
//   - FragmentCountMax (8): the most datagrams one logical packet may occupy,
//     the head included. The fragment header packs this count into a nibble.
//
//   - PacketSizeMax (10000 bytes): the largest logical packet. With the
//     default MTU this always fits in FragmentCountMax datagrams.
//
// # Freshness
//
// PacketResponseCounterDeltaMax bounds the packet ID distance between the
// local outgoing counter and the ID an OK or ERROR claims to answer.
//
// # Validation Functions
//
//	if err := limits.ValidatePacketSize(len(packet)); err != nil {
//	    // errors.Is(err, limits.ErrPacketTooLarge)
//	}
package limits
