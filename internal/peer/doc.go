// Package peer implements the daemon side of the link for the emulator and
// for end-to-end tests.
//
// A Peer dials the client's listening socket twice in the required order —
// command connection first, then event connection — services command records
// through registered handlers, and pushes event records. It shares the wire
// codec with the transport so both sides enforce the same framing invariant.
package peer
