package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"halyard/internal/config"
	"halyard/internal/logging"
	"halyard/internal/trace"
	"halyard/internal/transport"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
			socket, err := config.ExpandPath(*c.socketFlag)
			if err != nil {
				c.configErr = fmt.Errorf("resolve socket path: %w", err)
				return
			}
			cfg.Transport.SocketPath = socket
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withLink brings the link up, runs fn against it, and tears the link down.
// When tracing is enabled every transported message is recorded on the way
// through.
func (c *commandContext) withLink(ctx context.Context, handler transport.EventHandler, fn func(*transport.Conn) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg, "halyard.log")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	var tap transport.MessageTap
	if cfg.Trace.Enabled {
		store, err := trace.Open(cfg.Trace.DBPath, logger)
		if err != nil {
			return fmt.Errorf("open trace store: %w", err)
		}
		defer store.Close()
		tap = store
	}

	conn, err := transport.Listen(ctx, cfg, transport.Options{
		Logger:  logger,
		Handler: handler,
		Tap:     tap,
		OnFatal: exitOnFatal(logger),
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

// exitOnFatal is the shipped-binary policy for a broken link: a protocol
// violation on either channel means no further traffic can be trusted, so the
// process reports and exits.
func exitOnFatal(logger *slog.Logger) func(*transport.FatalError) {
	return func(err *transport.FatalError) {
		logger.Error("transport link broken", logging.Error(err))
		fmt.Fprintf(os.Stderr, "halyard: transport link broken: %v\n", err)
		os.Exit(1)
	}
}
