package wire_test

import (
	"bytes"
	"errors"
	"testing"

	"halyard/internal/wire"
)

func TestEncodeMessageLayout(t *testing.T) {
	record, err := wire.EncodeMessage(wire.ServiceAdapter, 0x05, []byte{0xAA, 0xBB})
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	want := []byte{0x01, 0x05, 0x02, 0x00, 0xAA, 0xBB}
	if !bytes.Equal(record, want) {
		t.Fatalf("unexpected record layout: got %x want %x", record, want)
	}
}

func TestEncodeMessageRejectsOversizePayload(t *testing.T) {
	if _, err := wire.EncodeMessage(wire.ServiceAdapter, 0x01, make([]byte, wire.MaxPayload+1)); err == nil {
		t.Fatal("expected oversize payload to be rejected")
	}
	if _, err := wire.EncodeMessage(wire.ServiceAdapter, 0x01, make([]byte, wire.MaxPayload)); err != nil {
		t.Fatalf("payload at maximum should encode: %v", err)
	}
}

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		record  []byte
		wantHdr wire.Header
		wantErr bool
	}{
		{
			name:    "round trip",
			record:  []byte{0x01, 0x05, 0x02, 0x00, 0xAA, 0xBB},
			wantHdr: wire.Header{Service: 0x01, Opcode: 0x05, Length: 2},
		},
		{
			name:    "empty payload",
			record:  []byte{0x01, 0x05, 0x00, 0x00},
			wantHdr: wire.Header{Service: 0x01, Opcode: 0x05, Length: 0},
		},
		{
			name:    "shorter than header",
			record:  []byte{0x01, 0x05, 0x02},
			wantErr: true,
		},
		{
			name:    "empty record",
			record:  nil,
			wantErr: true,
		},
		{
			name:    "declared length short by one",
			record:  []byte{0x01, 0x05, 0x03, 0x00, 0xAA, 0xBB},
			wantErr: true,
		},
		{
			name:    "declared length long by one",
			record:  []byte{0x01, 0x05, 0x01, 0x00, 0xAA, 0xBB},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hdr, payload, err := wire.DecodeMessage(tc.record)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected framing error")
				}
				if !errors.Is(err, wire.ErrFraming) {
					t.Fatalf("expected ErrFraming, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMessage: %v", err)
			}
			if hdr != tc.wantHdr {
				t.Fatalf("header mismatch: got %+v want %+v", hdr, tc.wantHdr)
			}
			if int(hdr.Length) != len(payload) {
				t.Fatalf("payload length %d does not match header %d", len(payload), hdr.Length)
			}
		})
	}
}

func TestHeaderIsEvent(t *testing.T) {
	if (wire.Header{Opcode: wire.MinEventOpcode - 1}).IsEvent() {
		t.Fatal("opcode below minimum must not classify as event")
	}
	if !(wire.Header{Opcode: wire.MinEventOpcode}).IsEvent() {
		t.Fatal("minimum event opcode must classify as event")
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	record := wire.EncodeErrorResponse(wire.ServiceSocket, wire.StatusBusy)
	hdr, payload, err := wire.DecodeMessage(record)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if hdr.Opcode != wire.OpError {
		t.Fatalf("expected error opcode, got 0x%02x", hdr.Opcode)
	}
	status, err := wire.DecodeErrorStatus(payload)
	if err != nil {
		t.Fatalf("DecodeErrorStatus: %v", err)
	}
	if status != wire.StatusBusy {
		t.Fatalf("expected busy status, got %v", status)
	}
}

func TestDecodeErrorStatusRejectsWrongSize(t *testing.T) {
	for _, body := range [][]byte{nil, {0x00, 0x01}} {
		if _, err := wire.DecodeErrorStatus(body); !errors.Is(err, wire.ErrFraming) {
			t.Fatalf("body %x: expected ErrFraming, got %v", body, err)
		}
	}
}
