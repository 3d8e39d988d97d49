// Command halyardd is the peer end of a halyard link. It dials back into a
// listening client, services echo and descriptor-granting commands, and emits
// a heartbeat event stream until the client hangs up.
//
// It exists so the CLI and integration setups have a real peer to talk to
// without embedding one.
package main
