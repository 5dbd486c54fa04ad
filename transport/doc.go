// Package transport carries VL1 datagrams between hosts.
//
// It provides the wire encoding of an Endpoint, the concrete Path a peer
// keeps for each route it has learned, a UDPHost that owns one socket and
// implements the send and clock half of the host interface the peer layer
// consumes, and a Defragmenter that gathers a fragmented packet's
// datagrams before they are handed to a peer.
//
// # UDP Host
//
//	clock := crypto.NewClock(crypto.DefaultTimeProvider{})
//	host, err := transport.NewUDPHost(":9993", clock, func(sock int64, from transport.Endpoint, data []byte) {
//	    head, frags, ok := defrag.Assemble(clock.Ticks(), from, data)
//	    ...
//	})
//	defer host.Close()
//
// The receive loop uses a short read deadline so Close returns promptly.
// Send failures are logged at Warn and reported to the caller as false.
//
// # Endpoint Encoding
//
// An endpoint is a type byte followed, for IP endpoints, by a family byte
// (4 or 6), the address bytes and a big-endian port. The empty endpoint is
// the single byte 0.
package transport
