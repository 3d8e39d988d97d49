package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"halyard/internal/logging"
	"halyard/internal/wire"
)

// Call issues one synchronous command round trip: serialize and send the
// request as a single record, block for the matching response, validate its
// framing, and demultiplex error from success.
//
// A response carrying the reserved error opcode yields the embedded status
// with a nil payload; that is an application-level rejection, not a
// transport failure. When wantFD is set, at most one passed descriptor is
// harvested from ancillary data; absence yields a nil file. Ownership of a
// returned file transfers to the caller.
//
// Round trips are serialized: only one Call is in flight at a time and
// concurrent callers block until the current round trip completes.
func (c *Conn) Call(service, opcode uint8, payload []byte, wantFD bool) (wire.Status, []byte, *os.File, error) {
	record, err := wire.EncodeMessage(service, opcode, payload)
	if err != nil {
		return wire.StatusFailed, nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broken.Load() {
		return wire.StatusFailed, nil, nil, ErrLinkBroken
	}
	if c.closing.Load() {
		return wire.StatusFailed, nil, nil, ErrLinkClosed
	}

	if c.callTimeout > 0 {
		if err := c.cmd.SetDeadline(time.Now().Add(c.callTimeout)); err != nil {
			return wire.StatusFailed, nil, nil, fmt.Errorf("set call deadline: %w", err)
		}
		defer func() {
			_ = c.cmd.SetDeadline(time.Time{})
		}()
	}

	n, err := c.cmd.Write(record)
	if err != nil {
		if c.closing.Load() {
			return wire.StatusFailed, nil, nil, fmt.Errorf("send command: %w", ErrLinkClosed)
		}
		if c.broken.Load() {
			return wire.StatusFailed, nil, nil, ErrLinkBroken
		}
		return wire.StatusFailed, nil, nil, c.fatal("command send", err)
	}
	if n != len(record) {
		// No partial-write recovery exists in the protocol.
		return wire.StatusFailed, nil, nil, c.fatal("command send",
			fmt.Errorf("partial record write: %d of %d bytes", n, len(record)))
	}
	reqHdr := wire.Header{Service: service, Opcode: opcode, Length: uint16(len(payload))}
	c.tapMessage(DirectionSend, ChannelCommand, reqHdr, wire.StatusSuccess, false)

	buf := make([]byte, wire.MTU)
	var oob []byte
	if wantFD {
		oob = make([]byte, oobSpace)
	}

	rn, oobn, _, _, err := c.cmd.ReadMsgUnix(buf, oob)
	if err != nil {
		if c.closing.Load() && (errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed)) {
			return wire.StatusFailed, nil, nil, fmt.Errorf("receive response: %w", ErrLinkClosed)
		}
		// An event-channel fatal closes the command socket to unblock
		// this read; report the latch, not a second violation.
		if c.broken.Load() {
			return wire.StatusFailed, nil, nil, ErrLinkBroken
		}
		return wire.StatusFailed, nil, nil, c.fatal("response receive", err)
	}

	hdr, body, err := wire.DecodeMessage(buf[:rn])
	if err != nil {
		return wire.StatusFailed, nil, nil, c.fatal("response decode", err)
	}

	if hdr.Opcode != opcode && hdr.Opcode != wire.OpError {
		// The stream is desynchronized; no future response can be
		// matched to its request.
		return wire.StatusFailed, nil, nil, c.fatal("response match",
			fmt.Errorf("opcode 0x%02x does not match request 0x%02x", hdr.Opcode, opcode))
	}

	if hdr.Opcode == wire.OpError {
		status, derr := wire.DecodeErrorStatus(body)
		if derr != nil {
			return wire.StatusFailed, nil, nil, c.fatal("error response decode", derr)
		}
		c.tapMessage(DirectionReceive, ChannelCommand, hdr, status, false)
		c.logger.Debug("command rejected by peer",
			logging.String(logging.FieldLinkID, c.id),
			logging.Int(logging.FieldService, int(service)),
			logging.Int(logging.FieldOpcode, int(opcode)),
			logging.String("status", status.String()))
		return status, nil, nil, nil
	}

	var file *os.File
	if wantFD {
		file, err = parseRights(oob[:oobn])
		if err != nil {
			return wire.StatusFailed, nil, nil, c.fatal("response ancillary data", err)
		}
	}

	response := make([]byte, len(body))
	copy(response, body)

	c.tapMessage(DirectionReceive, ChannelCommand, hdr, wire.StatusSuccess, file != nil)
	return wire.StatusSuccess, response, file, nil
}
