// Package peer implements the session a node keeps with each remote peer.
//
// A Peer owns a static secret agreed from the two long-term identities and,
// once an ephemeral exchange completes, a forward secret that is preferred
// for every packet. Inbound packets are opened with the forward secret
// first and the static secret second; once a forward secret exists only
// the handshake (HELLO and its OK) is accepted under the static one.
//
// The exchange is driven explicitly:
//
//	p.OfferEphemeral(ticks)         // keys go out with the next HELLO
//	p.SendHello(ticks, endpoint)    // peer answers OK(HELLO) with its keys
//	...                             // both sides install the agreed secret
//
// Everything that fails to authenticate, is stale or is malformed is
// dropped silently; Receive never replies to a packet it could not open.
//
// The collaborators a Peer needs (the local Node, the HostSystem that puts
// datagrams on the wire and the higher-layer PacketHandler) are interfaces
// so the session can run over any transport. transport.UDPHost and
// transport.Path implement the host and path sides.
package peer
