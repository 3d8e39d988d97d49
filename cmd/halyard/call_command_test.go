package main

import (
	"bytes"
	"testing"

	"halyard/internal/wire"
)

func TestParseHexPayload(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "empty", input: "", want: nil},
		{name: "plain", input: "aabb", want: []byte{0xAA, 0xBB}},
		{name: "spaced", input: "aa bb 01", want: []byte{0xAA, 0xBB, 0x01}},
		{name: "colon separated", input: "aa:bb", want: []byte{0xAA, 0xBB}},
		{name: "odd length", input: "abc", wantErr: true},
		{name: "not hex", input: "zz", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseHexPayload(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHexPayload(%q): %v", tc.input, err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("got %x, want %x", got, tc.want)
			}
		})
	}
}

func TestParseHexPayloadRejectsOversize(t *testing.T) {
	oversized := bytes.Repeat([]byte("ff"), wire.MaxPayload+1)
	if _, err := parseHexPayload(string(oversized)); err == nil {
		t.Fatal("expected oversize rejection")
	}
}

func TestShortLinkID(t *testing.T) {
	if got := shortLinkID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("got %q", got)
	}
	if got := shortLinkID("abc"); got != "abc" {
		t.Fatalf("short ids pass through, got %q", got)
	}
}
