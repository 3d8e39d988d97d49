// Package transport implements the client side of the peer daemon link: a
// pair of SOCK_SEQPACKET unix connections carrying length-prefixed records,
// with SCM_RIGHTS descriptor passing.
//
// Listen binds the well-known socket, triggers peer startup, and accepts the
// command connection followed by the event connection, each under a
// deadline. The resulting Conn owns both sockets and one background
// goroutine: callers issue synchronous command round trips through Call
// while the receiver goroutine validates and dispatches peer-initiated
// events in arrival order.
//
// The error model is strict. Setup failures are ordinary errors and release
// every partially created resource. Once the link is up, any framing or
// protocol violation permanently breaks the Conn — the byte stream cannot be
// resynchronized, so both channels stop carrying traffic no matter which one
// violated the contract — and is surfaced as a FatalError through the
// optional OnFatal hook. Application-level rejections are not errors; they arrive as
// well-formed error-opcode responses and come back from Call as a status.
package transport
