package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"halyard/internal/logging"
	"halyard/internal/wire"
)

// Event is one validated, fully-decoded notification from the peer. File is
// non-nil only when the peer attached a descriptor; ownership transfers to
// the handler.
type Event struct {
	Service uint8
	Opcode  uint8
	Payload []byte
	File    *os.File
}

// EventHandler consumes peer notifications. Dispatch is synchronous and
// single-threaded: handlers observe events strictly in arrival order with no
// concurrent re-entrancy, and a slow handler backpressures the peer.
type EventHandler func(Event)

// receiveLoop runs on the dedicated receiver goroutine from bring-up until
// teardown or a fatal transport error. It is the only reader of the event
// socket and closes it on the way out.
func (c *Conn) receiveLoop() {
	defer c.wg.Done()
	defer func() {
		_ = c.evt.Close()
	}()

	buf := make([]byte, wire.MTU)
	oob := make([]byte, oobSpace)

	for {
		if c.broken.Load() {
			return
		}

		n, oobn, _, _, err := c.evt.ReadMsgUnix(buf, oob)
		if err != nil {
			// End of stream is the only benign exit, and only once
			// teardown has begun on the command side or a fatal has
			// already latched the link. A peer that hangs up while
			// the link is live has violated the protocol.
			if errors.Is(err, io.EOF) {
				if c.closing.Load() || c.broken.Load() {
					c.logger.Debug("event receiver stopped",
						logging.String(logging.FieldLinkID, c.id))
					return
				}
				c.fatal("event receive", errors.New("peer closed event channel while link was live"))
				return
			}
			if (c.closing.Load() || c.broken.Load()) && errors.Is(err, net.ErrClosed) {
				return
			}
			c.fatal("event receive", err)
			return
		}

		hdr, body, err := wire.DecodeMessage(buf[:n])
		if err != nil {
			c.fatal("event decode", err)
			return
		}
		if !hdr.IsEvent() {
			c.fatal("event validate",
				fmt.Errorf("opcode 0x%02x below minimum event opcode 0x%02x", hdr.Opcode, wire.MinEventOpcode))
			return
		}

		file, err := parseRights(oob[:oobn])
		if err != nil {
			c.fatal("event ancillary data", err)
			return
		}

		// A fatal may have latched while this record was in flight;
		// nothing reaches the handler once the link is broken.
		if c.broken.Load() {
			if file != nil {
				_ = file.Close()
			}
			return
		}

		c.tapMessage(DirectionReceive, ChannelEvent, hdr, wire.StatusSuccess, file != nil)

		if c.handler == nil {
			if file != nil {
				_ = file.Close()
			}
			c.logger.Debug("event dropped, no handler installed",
				logging.String(logging.FieldLinkID, c.id),
				logging.Int(logging.FieldService, int(hdr.Service)),
				logging.Int(logging.FieldOpcode, int(hdr.Opcode)))
			continue
		}

		// The read buffer is reused; hand the handler its own copy.
		payload := make([]byte, len(body))
		copy(payload, body)

		c.handler(Event{
			Service: hdr.Service,
			Opcode:  hdr.Opcode,
			Payload: payload,
			File:    file,
		})
	}
}
