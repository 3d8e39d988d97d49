// Package wire defines the binary message layout shared by the command and
// event channels.
//
// Every message is a single socket record: a packed four-byte header
// (service, opcode, little-endian payload length) followed by exactly the
// declared number of payload bytes. The codec is pure and stateless; both
// transport directions rely on it so the framing invariant — record length
// equals header size plus declared length — is enforced identically
// everywhere.
package wire
