package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"halyard/internal/logging"
	"halyard/internal/wire"
)

// Request is one decoded command record awaiting a handler.
type Request struct {
	Service uint8
	Opcode  uint8
	Payload []byte
}

// Response describes the reply to one command. A non-success status turns
// into an error-opcode record carrying the status byte; payload and file are
// then ignored. File, when set, is attached as a passed descriptor and
// closed once the reply is on the wire.
type Response struct {
	Status  wire.Status
	Payload []byte
	File    *os.File
}

// HandlerFunc services one command. Handlers run on the serve goroutine,
// one at a time, in arrival order.
type HandlerFunc func(Request) Response

// Peer is the daemon end of a link.
type Peer struct {
	cmd    *net.UnixConn
	evt    *net.UnixConn
	logger *slog.Logger

	handlers map[uint16]HandlerFunc

	// evtMu serializes event records so concurrent senders cannot
	// interleave.
	evtMu sync.Mutex

	regMu      sync.Mutex
	registered map[uint8]bool
}

// Dial connects to a listening client at path, command connection first,
// then event connection. The order is part of the protocol: the client
// assigns roles by arrival.
func Dial(path string, logger *slog.Logger) (*Peer, error) {
	logger = logging.NewComponentLogger(logger, "peer")

	addr, err := net.ResolveUnixAddr("unixpacket", path)
	if err != nil {
		return nil, fmt.Errorf("resolve socket address: %w", err)
	}
	cmd, err := net.DialUnix("unixpacket", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial command connection: %w", err)
	}
	evt, err := net.DialUnix("unixpacket", nil, addr)
	if err != nil {
		_ = cmd.Close()
		return nil, fmt.Errorf("dial event connection: %w", err)
	}

	logger.Debug("connected to client", logging.String(logging.FieldSocket, path))
	return &Peer{
		cmd:        cmd,
		evt:        evt,
		logger:     logger,
		handlers:   make(map[uint16]HandlerFunc),
		registered: make(map[uint8]bool),
	}, nil
}

func handlerKey(service, opcode uint8) uint16 {
	return uint16(service)<<8 | uint16(opcode)
}

// Handle registers a command handler. Registration is not safe once Serve
// is running.
func (p *Peer) Handle(service, opcode uint8, fn HandlerFunc) {
	p.handlers[handlerKey(service, opcode)] = fn
}

// ServiceRegistered reports whether the client has registered the service.
func (p *Peer) ServiceRegistered(service uint8) bool {
	p.regMu.Lock()
	defer p.regMu.Unlock()
	return p.registered[service]
}

// Serve reads command records and replies until the client hangs up or ctx
// is canceled. A clean client shutdown returns nil.
func (p *Peer) Serve(ctx context.Context) error {
	buf := make([]byte, wire.MTU)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := p.cmd.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read command: %w", err)
		}

		hdr, body, err := wire.DecodeMessage(buf[:n])
		if err != nil {
			return fmt.Errorf("decode command: %w", err)
		}

		resp := p.dispatch(hdr, body)
		if err := p.reply(hdr, resp); err != nil {
			return err
		}
	}
}

func (p *Peer) dispatch(hdr wire.Header, body []byte) Response {
	req := Request{Service: hdr.Service, Opcode: hdr.Opcode, Payload: body}

	if hdr.Service == wire.ServiceCore {
		switch hdr.Opcode {
		case wire.OpCoreRegister:
			return p.setRegistered(req, true)
		case wire.OpCoreUnregister:
			return p.setRegistered(req, false)
		}
	} else if !p.ServiceRegistered(hdr.Service) {
		return Response{Status: wire.StatusNotReady}
	}

	fn, ok := p.handlers[handlerKey(hdr.Service, hdr.Opcode)]
	if !ok {
		p.logger.Debug("unhandled command",
			logging.Int(logging.FieldService, int(hdr.Service)),
			logging.Int(logging.FieldOpcode, int(hdr.Opcode)))
		return Response{Status: wire.StatusUnhandled}
	}
	return fn(req)
}

// setRegistered services the core register/unregister handshake. The body
// is exactly one byte naming the service.
func (p *Peer) setRegistered(req Request, value bool) Response {
	if len(req.Payload) != 1 {
		return Response{Status: wire.StatusInvalidParam}
	}
	service := req.Payload[0]
	if service == wire.ServiceCore {
		return Response{Status: wire.StatusInvalidParam}
	}
	p.regMu.Lock()
	p.registered[service] = value
	p.regMu.Unlock()
	return Response{Status: wire.StatusSuccess}
}

func (p *Peer) reply(hdr wire.Header, resp Response) error {
	if resp.Status != wire.StatusSuccess {
		if resp.File != nil {
			_ = resp.File.Close()
		}
		record := wire.EncodeErrorResponse(hdr.Service, resp.Status)
		if _, err := p.cmd.Write(record); err != nil {
			return fmt.Errorf("write error response: %w", err)
		}
		return nil
	}

	record, err := wire.EncodeMessage(hdr.Service, hdr.Opcode, resp.Payload)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if resp.File == nil {
		if _, err := p.cmd.Write(record); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		return nil
	}

	rights := unix.UnixRights(int(resp.File.Fd()))
	_, _, err = p.cmd.WriteMsgUnix(record, rights, nil)
	// The kernel duplicated the descriptor into the message; the local
	// copy is done.
	_ = resp.File.Close()
	if err != nil {
		return fmt.Errorf("write response with descriptor: %w", err)
	}
	return nil
}

// SendEvent pushes one record on the event connection. The opcode must be
// in the event range. When file is non-nil it rides along as a passed
// descriptor and is closed once sent.
func (p *Peer) SendEvent(service, opcode uint8, payload []byte, file *os.File) error {
	if opcode < wire.MinEventOpcode {
		if file != nil {
			_ = file.Close()
		}
		return fmt.Errorf("opcode 0x%02x below minimum event opcode 0x%02x", opcode, wire.MinEventOpcode)
	}
	record, err := wire.EncodeMessage(service, opcode, payload)
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return err
	}

	p.evtMu.Lock()
	defer p.evtMu.Unlock()

	if file == nil {
		if _, err := p.evt.Write(record); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		return nil
	}

	rights := unix.UnixRights(int(file.Fd()))
	_, _, err = p.evt.WriteMsgUnix(record, rights, nil)
	_ = file.Close()
	if err != nil {
		return fmt.Errorf("write event with descriptor: %w", err)
	}
	return nil
}

// SendRawEvent writes an arbitrary record on the event connection, framing
// included. It exists so tests can exercise the client's handling of
// malformed traffic.
func (p *Peer) SendRawEvent(record []byte) error {
	p.evtMu.Lock()
	defer p.evtMu.Unlock()
	if _, err := p.evt.Write(record); err != nil {
		return fmt.Errorf("write raw event: %w", err)
	}
	return nil
}

// Close drops both connections.
func (p *Peer) Close() error {
	err := p.cmd.Close()
	if cerr := p.evt.Close(); err == nil {
		err = cerr
	}
	return err
}
