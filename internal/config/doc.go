// Package config loads, normalizes, and validates Halyard configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the transport, the CLI, and the peer emulator need: socket placement,
// accept and call deadlines, peer launch command, logging, and trace
// recording.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
