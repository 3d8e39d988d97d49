package trace_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"halyard/internal/logging"
	"halyard/internal/trace"
	"halyard/internal/transport"
	"halyard/internal/wire"
)

func TestStoreRecordsAndLists(t *testing.T) {
	dir := t.TempDir()
	store, err := trace.Open(filepath.Join(dir, "trace.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("trace.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	messages := []transport.Message{
		{
			LinkID:     "link-1",
			Direction:  transport.DirectionSend,
			Channel:    transport.ChannelCommand,
			Service:    wire.ServiceAdapter,
			Opcode:     0x05,
			PayloadLen: 2,
			At:         base,
		},
		{
			LinkID:     "link-1",
			Direction:  transport.DirectionReceive,
			Channel:    transport.ChannelEvent,
			Service:    wire.ServiceAdapter,
			Opcode:     0x85,
			PayloadLen: 0,
			HasFD:      true,
			At:         base.Add(time.Second),
		},
	}
	for _, m := range messages {
		store.RecordMessage(m)
	}

	rows, err := store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Newest first.
	if rows[0].Opcode != 0x85 || !rows[0].HasFD {
		t.Fatalf("unexpected newest row: %+v", rows[0])
	}
	if rows[1].Direction != string(transport.DirectionSend) || rows[1].PayloadLen != 2 {
		t.Fatalf("unexpected oldest row: %+v", rows[1])
	}
	if !rows[1].At.Equal(base) {
		t.Fatalf("timestamp not preserved: %v", rows[1].At)
	}
}

func TestListDefaultsLimit(t *testing.T) {
	dir := t.TempDir()
	store, err := trace.Open(filepath.Join(dir, "trace.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("trace.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rows, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty store, got %d rows", len(rows))
	}
}
