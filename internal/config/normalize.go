package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePeer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Transport.SocketPath) == "" {
		c.Transport.SocketPath = defaultSocketPath
	}
	if c.Transport.SocketPath, err = expandPath(c.Transport.SocketPath); err != nil {
		return fmt.Errorf("transport.socket_path: %w", err)
	}
	if strings.TrimSpace(c.Trace.DBPath) == "" {
		c.Trace.DBPath = defaultTraceDBPath
	}
	if c.Trace.DBPath, err = expandPath(c.Trace.DBPath); err != nil {
		return fmt.Errorf("trace.db_path: %w", err)
	}
	return nil
}

func (c *Config) normalizePeer() {
	c.Peer.Command = strings.TrimSpace(c.Peer.Command)
	if c.Peer.Command == "" {
		c.Peer.Command = defaultPeerCommand
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		if expanded, err := expandPath(c.Logging.Dir); err == nil {
			c.Logging.Dir = expanded
		}
	}
}
