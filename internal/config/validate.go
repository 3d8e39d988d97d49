package config

import (
	"errors"
	"fmt"
)

// maxSocketPath mirrors the kernel limit on sun_path. Bind fails with an
// opaque error past it, so reject early with a clear message.
const maxSocketPath = 107

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTransport() error {
	if c.Transport.SocketPath == "" {
		return errors.New("transport.socket_path must be set")
	}
	if len(c.Transport.SocketPath) > maxSocketPath {
		return fmt.Errorf("transport.socket_path %q exceeds %d bytes", c.Transport.SocketPath, maxSocketPath)
	}
	if c.Transport.AcceptTimeoutMS < 0 {
		return errors.New("transport.accept_timeout_ms must not be negative")
	}
	if c.Transport.CallTimeoutMS < 0 {
		return errors.New("transport.call_timeout_ms must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
