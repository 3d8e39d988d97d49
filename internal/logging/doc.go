// Package logging centralizes structured logging for the transport, the CLI,
// and the peer emulator.
//
// It wraps log/slog with typed attribute helpers, canonical field names, and
// handler construction for console and JSON output. Components obtain
// loggers through NewFromConfig or NewComponentLogger so every record
// carries consistent fields (component, link id, event type).
package logging
