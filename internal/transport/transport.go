package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"halyard/internal/config"
	"halyard/internal/logging"
)

// Options carries the collaborators Listen wires into a Conn.
type Options struct {
	Logger  *slog.Logger
	Handler EventHandler
	Starter Starter
	Tap     MessageTap
	// OnFatal runs once when a fatal transport error breaks the link.
	// The shipped binaries install an exiting hook here; leaving it nil
	// keeps the policy (broken link, no resynchronization) while letting
	// the embedding application decide exit behavior.
	OnFatal func(*FatalError)
}

// Conn is one established link to the peer daemon. It owns the command and
// event sockets and the receiver goroutine for its whole lifetime; a Conn is
// never reconnected, only closed.
type Conn struct {
	cfg     *config.Config
	logger  *slog.Logger
	id      string
	cmd     *net.UnixConn
	evt     *net.UnixConn
	handler EventHandler
	tap     MessageTap
	onFatal func(*FatalError)

	callTimeout time.Duration
	socketPath  string
	lock        *flock.Flock

	// mu serializes complete command round trips. The command socket is
	// a single ordered stream; interleaving two requests would
	// desynchronize framing.
	mu sync.Mutex
	wg sync.WaitGroup

	closing   atomic.Bool
	broken    atomic.Bool
	fatalOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// ID returns the link identifier used in logs and trace records.
func (c *Conn) ID() string { return c.id }

// Listen binds the well-known socket, triggers peer startup, and accepts
// the command connection followed by the event connection, each bounded by
// the configured accept timeout. On success the notification receiver is
// running and the returned Conn is ready for Call. On any failure every
// partially created resource is released before returning.
func Listen(ctx context.Context, cfg *config.Config, opts Options) (*Conn, error) {
	if cfg == nil {
		return nil, errors.New("transport requires config")
	}
	logger := logging.NewComponentLogger(opts.Logger, "transport")

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	socketPath := cfg.Transport.SocketPath
	lock := flock.New(socketPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire link lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another link is already active on %s", socketPath)
	}

	cleanupLock := func() {
		_ = lock.Unlock()
	}

	if err := removeStaleSocket(socketPath); err != nil {
		cleanupLock()
		return nil, err
	}

	addr, err := net.ResolveUnixAddr("unixpacket", socketPath)
	if err != nil {
		cleanupLock()
		return nil, fmt.Errorf("resolve socket address: %w", err)
	}
	listener, err := net.ListenUnix("unixpacket", addr)
	if err != nil {
		cleanupLock()
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	cleanup := func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
		cleanupLock()
	}

	starter := opts.Starter
	if starter == nil && cfg.Peer.AutoStart {
		starter = &ExecStarter{
			Command:    cfg.Peer.Command,
			Args:       cfg.Peer.Args,
			SocketPath: socketPath,
			Logger:     logger,
		}
	}
	if starter != nil {
		if err := starter.StartPeer(ctx); err != nil {
			cleanup()
			return nil, fmt.Errorf("start peer: %w", err)
		}
	}

	timeout := cfg.AcceptTimeout()
	cmdConn, err := acceptConn(listener, timeout)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("accept command connection: %w", err)
	}
	evtConn, err := acceptConn(listener, timeout)
	if err != nil {
		_ = cmdConn.Close()
		cleanup()
		return nil, fmt.Errorf("accept event connection: %w", err)
	}

	// Both connections are in. The listener's job is done; the socket
	// file stays until teardown so a second bring-up attempt fails fast
	// on the lock rather than racing the path.
	_ = listener.Close()

	conn := &Conn{
		cfg:         cfg,
		logger:      logger,
		id:          uuid.NewString(),
		cmd:         cmdConn,
		evt:         evtConn,
		handler:     opts.Handler,
		tap:         opts.Tap,
		onFatal:     opts.OnFatal,
		callTimeout: cfg.CallTimeout(),
		socketPath:  socketPath,
		lock:        lock,
	}

	conn.wg.Add(1)
	go conn.receiveLoop()

	logger.Info("peer link established",
		logging.String(logging.FieldLinkID, conn.id),
		logging.String(logging.FieldSocket, socketPath))
	return conn, nil
}

// acceptConn waits for one inbound connection under a deadline. A deadline
// expiry is a bring-up timeout, not retried.
func acceptConn(listener *net.UnixListener, timeout time.Duration) (*net.UnixConn, error) {
	if err := listener.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set accept deadline: %w", err)
	}
	conn, err := listener.AcceptUnix()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrAcceptTimeout
		}
		return nil, err
	}
	return conn, nil
}

func removeStaleSocket(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	return nil
}

// Close tears the link down. The ordering is load-bearing: the command
// socket closes first so a blocked caller unblocks with an error, then the
// event socket gets a read-direction shutdown — not a close — so the
// receiver observes a clean end of stream without racing the descriptor,
// then teardown waits for the receiver to stop. Close is idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		// A fatal already closed both sockets when the link is broken.
		if err := c.cmd.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.closeErr = err
		}
		if err := c.evt.CloseRead(); err != nil && c.closeErr == nil {
			if !errors.Is(err, net.ErrClosed) {
				c.closeErr = err
			}
		}
		c.wg.Wait()

		if c.lock != nil {
			_ = c.lock.Unlock()
		}
		_ = os.Remove(c.socketPath)

		c.logger.Info("link closed", logging.String(logging.FieldLinkID, c.id))
	})
	return c.closeErr
}

// fatal latches the broken state, reports the error once, and returns it.
// The link carries no further traffic: there is no resynchronization marker
// in the wire format, so continuing after a violation would only produce
// garbage. The latch applies to both channels regardless of which one
// violated the contract — the command socket closes so a blocked caller
// unblocks, and the event socket gets a read-direction shutdown so the
// receiver stops before dispatching anything further.
func (c *Conn) fatal(op string, err error) error {
	ferr := &FatalError{Op: op, Err: err}
	c.broken.Store(true)
	c.fatalOnce.Do(func() {
		c.logger.Error("fatal transport error",
			logging.String(logging.FieldLinkID, c.id),
			logging.String("op", op),
			logging.Error(err))
		_ = c.cmd.Close()
		_ = c.evt.CloseRead()
		if c.onFatal != nil {
			c.onFatal(ferr)
		}
	})
	return ferr
}
