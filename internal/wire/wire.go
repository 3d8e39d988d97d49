package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the packed size of a message header in bytes.
	HeaderSize = 4

	// MTU bounds a full record, header included. Records never exceed it
	// in either direction.
	MTU = 1024

	// MaxPayload is the largest payload a single record may carry.
	MaxPayload = MTU - HeaderSize
)

// Well-known service identifiers.
const (
	ServiceCore    uint8 = 0x00
	ServiceAdapter uint8 = 0x01
	ServiceSocket  uint8 = 0x02
)

const (
	// OpError is the reserved response opcode carrying a status body.
	OpError uint8 = 0x00

	// MinEventOpcode is the lowest opcode valid on the event channel.
	// Anything below it on that channel is a framing violation.
	MinEventOpcode uint8 = 0x81
)

// Core service opcodes.
const (
	OpCoreRegister   uint8 = 0x01
	OpCoreUnregister uint8 = 0x02
)

// Status is the application-level result code carried in an error response.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusNotReady
	StatusNoMemory
	StatusBusy
	StatusDone
	StatusUnsupported
	StatusInvalidParam
	StatusUnhandled
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusNotReady:
		return "not ready"
	case StatusNoMemory:
		return "no memory"
	case StatusBusy:
		return "busy"
	case StatusDone:
		return "done"
	case StatusUnsupported:
		return "unsupported"
	case StatusInvalidParam:
		return "invalid parameter"
	case StatusUnhandled:
		return "unhandled"
	default:
		return fmt.Sprintf("status 0x%02x", uint8(s))
	}
}

// ErrFraming is wrapped by every decode failure so callers can classify a
// violation of the framing contract with errors.Is.
var ErrFraming = errors.New("framing violation")

// Header is the fixed-size record prefix. Length counts payload bytes only.
type Header struct {
	Service uint8
	Opcode  uint8
	Length  uint16
}

// IsEvent reports whether the opcode is in the event range.
func (h Header) IsEvent() bool {
	return h.Opcode >= MinEventOpcode
}

// EncodeMessage serializes a header and payload into one record buffer.
func EncodeMessage(service, opcode uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("encode message: payload %d bytes exceeds maximum %d", len(payload), MaxPayload)
	}
	record := make([]byte, HeaderSize+len(payload))
	record[0] = service
	record[1] = opcode
	binary.LittleEndian.PutUint16(record[2:4], uint16(len(payload)))
	copy(record[HeaderSize:], payload)
	return record, nil
}

// DecodeMessage parses one record and validates the framing invariant.
// The returned payload aliases the record buffer.
func DecodeMessage(record []byte) (Header, []byte, error) {
	if len(record) < HeaderSize {
		return Header{}, nil, fmt.Errorf("%w: record of %d bytes shorter than header", ErrFraming, len(record))
	}
	hdr := Header{
		Service: record[0],
		Opcode:  record[1],
		Length:  binary.LittleEndian.Uint16(record[2:4]),
	}
	if len(record) != HeaderSize+int(hdr.Length) {
		return Header{}, nil, fmt.Errorf("%w: header declares %d payload bytes, record carries %d",
			ErrFraming, hdr.Length, len(record)-HeaderSize)
	}
	return hdr, record[HeaderSize:], nil
}

// EncodeErrorResponse builds an error-opcode record for the given service
// carrying a one-byte status body.
func EncodeErrorResponse(service uint8, status Status) []byte {
	record, _ := EncodeMessage(service, OpError, []byte{uint8(status)})
	return record
}

// DecodeErrorStatus validates the fixed-format error body and returns the
// embedded status code.
func DecodeErrorStatus(payload []byte) (Status, error) {
	if len(payload) != 1 {
		return StatusFailed, fmt.Errorf("%w: error response body is %d bytes, want 1", ErrFraming, len(payload))
	}
	return Status(payload[0]), nil
}
