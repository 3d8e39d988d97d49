// Package trace persists one row per transported message into a SQLite
// database for after-the-fact link inspection.
//
// The store implements the transport's MessageTap, so wiring it into a link
// records every well-formed command, response, and event with its service,
// opcode, payload length, status, and descriptor flag. The halyard CLI
// queries the same database to render recent traffic.
package trace
