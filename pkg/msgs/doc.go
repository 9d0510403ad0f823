// Package msgs defines the messages exchanged between an SBUS node and
// remote peers.
package msgs

// Every packet on the wire is a Typed envelope carrying a type ID, a
// sequence number which correlates command replies, and the encoded
// message. Messages are protobuf (proto3) encoded.
//
// Producer: SBUS node (events, replies)
// Consumer: monitors and controllers (commands)
