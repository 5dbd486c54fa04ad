// Package commands implements the vl1probe CLI. keygen prints a fresh
// identity; selftest runs two nodes over loopback UDP, performs the HELLO
// handshake with ephemeral keys and exchanges an ECHO and a frame.
package commands
