// Package main hosts the halyard CLI entrypoint and command graph.
//
// The Cobra-based command tree brings a peer link up on demand and turns
// terminal invocations into command round trips, event monitoring sessions,
// trace queries, and configuration scaffolding. It centralizes configuration
// resolution, socket discovery, and logging setup so subcommands can focus on
// user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
