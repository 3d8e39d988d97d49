package testsupport

import (
	"context"
	"testing"

	"halyard/internal/logging"
	"halyard/internal/peer"
	"halyard/internal/transport"
)

// PeerStarter returns a transport.Starter that dials the listening client
// from a background goroutine and serves commands with the supplied
// configuration. The peer is closed and its serve loop drained during test
// cleanup.
func PeerStarter(t testing.TB, socketPath string, configure func(*peer.Peer)) transport.Starter {
	t.Helper()

	done := make(chan struct{})
	var started *peer.Peer

	t.Cleanup(func() {
		if started != nil {
			_ = started.Close()
			<-done
		}
	})

	return transport.StarterFunc(func(ctx context.Context) error {
		p, err := peer.Dial(socketPath, logging.NewNop())
		if err != nil {
			close(done)
			return err
		}
		started = p
		if configure != nil {
			configure(p)
		}
		go func() {
			defer close(done)
			_ = p.Serve(context.Background())
		}()
		return nil
	})
}
