package transport

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"halyard/internal/logging"
)

// Starter triggers peer daemon startup during link bring-up. The trigger is
// fire-and-forget: the peer signals readiness by dialing back, not through
// the starter.
type Starter interface {
	StartPeer(ctx context.Context) error
}

// StarterFunc adapts a function to the Starter interface.
type StarterFunc func(ctx context.Context) error

func (f StarterFunc) StartPeer(ctx context.Context) error { return f(ctx) }

// ExecStarter launches the peer daemon as a detached process.
type ExecStarter struct {
	Command    string
	Args       []string
	SocketPath string
	Logger     *slog.Logger
}

func (s *ExecStarter) StartPeer(context.Context) error {
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("launch peer: command is empty")
	}

	args := append([]string{}, s.Args...)
	if s.SocketPath != "" {
		args = append(args, "--socket", s.SocketPath)
	}

	proc := exec.Command(s.Command, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch peer %s: %w", s.Command, err)
	}
	if s.Logger != nil {
		s.Logger.Debug("peer daemon launched",
			logging.String("command", s.Command),
			logging.Int("pid", proc.Process.Pid))
	}
	return proc.Process.Release()
}
