package main

import (
	"context"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"halyard/internal/logging"
	"halyard/internal/peer"
	"halyard/internal/wire"
)

const (
	opPing uint8 = 0x01
	opEcho uint8 = 0x02

	// socket service: open a spool file and hand its descriptor over
	opOpenSpool uint8 = 0x01

	evtHeartbeat = wire.MinEventOpcode
)

func registerHandlers(p *peer.Peer, logger *slog.Logger) {
	p.Handle(wire.ServiceAdapter, opPing, func(peer.Request) peer.Response {
		return peer.Response{Status: wire.StatusSuccess}
	})

	p.Handle(wire.ServiceAdapter, opEcho, func(req peer.Request) peer.Response {
		return peer.Response{Status: wire.StatusSuccess, Payload: req.Payload}
	})

	p.Handle(wire.ServiceSocket, opOpenSpool, func(req peer.Request) peer.Response {
		file, err := openSpool(req.Payload)
		if err != nil {
			logger.Warn("open spool file", logging.Error(err))
			return peer.Response{Status: wire.StatusFailed}
		}
		return peer.Response{Status: wire.StatusSuccess, File: file}
	})
}

// openSpool creates a spool file named by the request payload (or a default)
// and returns it positioned at the start for the client to read or write.
func openSpool(payload []byte) (*os.File, error) {
	name := "halyardd.spool"
	if len(payload) > 0 {
		name = filepath.Base(string(payload))
	}
	path := filepath.Join(os.TempDir(), name)
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
}

// heartbeat emits a counter event on the notification channel until ctx is
// canceled or the link goes away.
func heartbeat(ctx context.Context, p *peer.Peer, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint32
	payload := make([]byte, 4)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			binary.LittleEndian.PutUint32(payload, seq)
			if err := p.SendEvent(wire.ServiceAdapter, evtHeartbeat, payload, nil); err != nil {
				logger.Debug("heartbeat stopped", logging.Error(err))
				return
			}
		}
	}
}
