package peer_test

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"halyard/internal/logging"
	"halyard/internal/peer"
	"halyard/internal/wire"
)

const opPing uint8 = 0x03

// newTestPeer wires a peer to an in-test client: a listening socket accepts
// the peer's command and event connections and hands the raw halves back.
func newTestPeer(t *testing.T, configure func(*peer.Peer)) (*peer.Peer, *net.UnixConn, *net.UnixConn) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "peer.sock")
	addr, err := net.ResolveUnixAddr("unixpacket", path)
	if err != nil {
		t.Fatalf("resolve address: %v", err)
	}
	listener, err := net.ListenUnix("unixpacket", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	p, err := peer.Dial(path, logging.NewNop())
	if err != nil {
		t.Fatalf("peer.Dial: %v", err)
	}
	if configure != nil {
		configure(p)
	}

	cmd, err := listener.AcceptUnix()
	if err != nil {
		t.Fatalf("accept command connection: %v", err)
	}
	evt, err := listener.AcceptUnix()
	if err != nil {
		t.Fatalf("accept event connection: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Serve(context.Background())
	}()
	t.Cleanup(func() {
		_ = cmd.Close()
		_ = evt.Close()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after client hangup")
		}
		_ = p.Close()
	})

	return p, cmd, evt
}

// roundTrip sends one command record and decodes the reply.
func roundTrip(t *testing.T, cmd *net.UnixConn, service, opcode uint8, payload []byte) (wire.Header, []byte) {
	t.Helper()

	record, err := wire.EncodeMessage(service, opcode, payload)
	if err != nil {
		t.Fatalf("encode command: %v", err)
	}
	if _, err := cmd.Write(record); err != nil {
		t.Fatalf("write command: %v", err)
	}

	buf := make([]byte, wire.MTU)
	n, err := cmd.Read(buf)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	hdr, body, err := wire.DecodeMessage(buf[:n])
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	out := make([]byte, len(body))
	copy(out, body)
	return hdr, out
}

// errorStatus asserts the reply is an error record and extracts its status.
func errorStatus(t *testing.T, hdr wire.Header, body []byte) wire.Status {
	t.Helper()
	if hdr.Opcode != wire.OpError {
		t.Fatalf("expected error opcode, got 0x%02x", hdr.Opcode)
	}
	status, err := wire.DecodeErrorStatus(body)
	if err != nil {
		t.Fatalf("decode error status: %v", err)
	}
	return status
}

func TestRegistrationGatesDispatch(t *testing.T) {
	_, cmd, _ := newTestPeer(t, func(p *peer.Peer) {
		p.Handle(wire.ServiceAdapter, opPing, func(req peer.Request) peer.Response {
			return peer.Response{Status: wire.StatusSuccess, Payload: req.Payload}
		})
	})

	hdr, body := roundTrip(t, cmd, wire.ServiceAdapter, opPing, []byte{0x01})
	if status := errorStatus(t, hdr, body); status != wire.StatusNotReady {
		t.Fatalf("unregistered service: expected not-ready, got %v", status)
	}

	hdr, _ = roundTrip(t, cmd, wire.ServiceCore, wire.OpCoreRegister, []byte{wire.ServiceAdapter})
	if hdr.Opcode != wire.OpCoreRegister {
		t.Fatalf("register failed: reply opcode 0x%02x", hdr.Opcode)
	}

	payload := []byte{0xCA, 0xFE}
	hdr, body = roundTrip(t, cmd, wire.ServiceAdapter, opPing, payload)
	if hdr.Opcode != opPing {
		t.Fatalf("expected echo reply, got opcode 0x%02x", hdr.Opcode)
	}
	if !bytes.Equal(body, payload) {
		t.Fatalf("echo mismatch: got %x want %x", body, payload)
	}

	hdr, _ = roundTrip(t, cmd, wire.ServiceCore, wire.OpCoreUnregister, []byte{wire.ServiceAdapter})
	if hdr.Opcode != wire.OpCoreUnregister {
		t.Fatalf("unregister failed: reply opcode 0x%02x", hdr.Opcode)
	}

	hdr, body = roundTrip(t, cmd, wire.ServiceAdapter, opPing, []byte{0x01})
	if status := errorStatus(t, hdr, body); status != wire.StatusNotReady {
		t.Fatalf("after unregister: expected not-ready, got %v", status)
	}
}

func TestRegisterRejectsMalformedRequests(t *testing.T) {
	_, cmd, _ := newTestPeer(t, nil)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty body", nil},
		{"oversized body", []byte{wire.ServiceAdapter, 0x00}},
		{"core service", []byte{wire.ServiceCore}},
	}
	for _, tc := range tests {
		hdr, body := roundTrip(t, cmd, wire.ServiceCore, wire.OpCoreRegister, tc.payload)
		if status := errorStatus(t, hdr, body); status != wire.StatusInvalidParam {
			t.Fatalf("%s: expected invalid param, got %v", tc.name, status)
		}
	}
}

func TestUnknownOpcodeUnhandled(t *testing.T) {
	_, cmd, _ := newTestPeer(t, nil)

	hdr, _ := roundTrip(t, cmd, wire.ServiceCore, wire.OpCoreRegister, []byte{wire.ServiceSocket})
	if hdr.Opcode != wire.OpCoreRegister {
		t.Fatalf("register failed: reply opcode 0x%02x", hdr.Opcode)
	}

	hdr, body := roundTrip(t, cmd, wire.ServiceSocket, 0x42, nil)
	if status := errorStatus(t, hdr, body); status != wire.StatusUnhandled {
		t.Fatalf("expected unhandled, got %v", status)
	}
}

func TestSendEventRejectsCommandRangeOpcode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peer.sock")
	addr, err := net.ResolveUnixAddr("unixpacket", path)
	if err != nil {
		t.Fatalf("resolve address: %v", err)
	}
	listener, err := net.ListenUnix("unixpacket", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	p, err := peer.Dial(path, logging.NewNop())
	if err != nil {
		t.Fatalf("peer.Dial: %v", err)
	}
	defer p.Close()

	file, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open devnull: %v", err)
	}
	if err := p.SendEvent(wire.ServiceAdapter, 0x10, nil, file); err == nil {
		t.Fatal("expected rejection of command-range opcode")
	}
	// The descriptor was consumed even on failure.
	if _, err := file.Stat(); err == nil {
		t.Fatal("file should be closed after rejected send")
	}
}

func TestEventRecordsUseEventConnection(t *testing.T) {
	p, _, evt := newTestPeer(t, nil)

	payload := []byte{0x07, 0x08}
	if err := p.SendEvent(wire.ServiceAdapter, 0x90, payload, nil); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	_ = evt.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, wire.MTU)
	n, err := evt.Read(buf)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	hdr, body, err := wire.DecodeMessage(buf[:n])
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if hdr.Service != wire.ServiceAdapter || hdr.Opcode != 0x90 {
		t.Fatalf("unexpected event header %+v", hdr)
	}
	if !bytes.Equal(body, payload) {
		t.Fatalf("event payload mismatch: got %x want %x", body, payload)
	}
	if !hdr.IsEvent() {
		t.Fatal("event opcode must be in the event range")
	}
}
