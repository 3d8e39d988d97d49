package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"halyard/internal/config"
	"halyard/internal/logging"
	"halyard/internal/peer"
)

func main() {
	socketFlag := flag.String("socket", "", "Path to the link socket (overrides configuration)")
	configFlag := flag.String("config", "", "Configuration file path")
	intervalFlag := flag.Duration("interval", 5*time.Second, "Heartbeat event interval (0 disables heartbeats)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg, "halyardd.log")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	socket := cfg.Transport.SocketPath
	if strings.TrimSpace(*socketFlag) != "" {
		socket = *socketFlag
	}

	p, err := peer.Dial(socket, logger)
	if err != nil {
		logger.Error("dial client", logging.Error(err), logging.String(logging.FieldSocket, socket))
		os.Exit(1)
	}

	registerHandlers(p, logger)
	if *intervalFlag > 0 {
		go heartbeat(ctx, p, *intervalFlag, logger)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Serve(context.Background())
	}()

	select {
	case <-ctx.Done():
		logger.Info("halyardd shutting down")
		_ = p.Close()
		<-done
	case err := <-done:
		_ = p.Close()
		if err != nil {
			logger.Error("serve commands", logging.Error(err))
			os.Exit(1)
		}
		logger.Info("client hung up, exiting")
	}
}
