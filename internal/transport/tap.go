package transport

import (
	"time"

	"halyard/internal/wire"
)

// Direction distinguishes locally sent from peer-originated messages.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

// Channel identifies which of the two connections carried a message.
type Channel string

const (
	ChannelCommand Channel = "command"
	ChannelEvent   Channel = "event"
)

// Message describes one transported record for observers.
type Message struct {
	LinkID     string
	Direction  Direction
	Channel    Channel
	Service    uint8
	Opcode     uint8
	PayloadLen int
	Status     wire.Status
	HasFD      bool
	At         time.Time
}

// MessageTap observes every well-formed message crossing the link. Taps run
// synchronously on the transport paths and must not block; recording
// failures are the tap's own concern.
type MessageTap interface {
	RecordMessage(Message)
}

func (c *Conn) tapMessage(dir Direction, ch Channel, hdr wire.Header, status wire.Status, hasFD bool) {
	if c.tap == nil {
		return
	}
	c.tap.RecordMessage(Message{
		LinkID:     c.id,
		Direction:  dir,
		Channel:    ch,
		Service:    hdr.Service,
		Opcode:     hdr.Opcode,
		PayloadLen: int(hdr.Length),
		Status:     status,
		HasFD:      hasFD,
		At:         time.Now().UTC(),
	})
}
