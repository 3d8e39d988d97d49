package testsupport

import (
	"path/filepath"
	"testing"

	"halyard/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Peer auto start is disabled; tests wire their own starter or peer.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Transport.SocketPath = filepath.Join(base, "halyard.sock")
	cfg.Logging.Dir = filepath.Join(base, "logs")
	cfg.Trace.DBPath = filepath.Join(base, "trace.db")
	cfg.Peer.AutoStart = false

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return &cfg
}

// WithAcceptTimeout overrides the bring-up accept deadline.
func WithAcceptTimeout(ms int) ConfigOption {
	return func(c *config.Config) {
		c.Transport.AcceptTimeoutMS = ms
	}
}

// WithCallTimeout enables the optional command round-trip deadline.
func WithCallTimeout(ms int) ConfigOption {
	return func(c *config.Config) {
		c.Transport.CallTimeoutMS = ms
	}
}
