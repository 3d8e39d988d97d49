package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"halyard/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantSocket := filepath.Join(tempHome, ".local", "share", "halyard", "halyard.sock")
	if cfg.Transport.SocketPath != wantSocket {
		t.Fatalf("unexpected socket path: got %q want %q", cfg.Transport.SocketPath, wantSocket)
	}
	if cfg.AcceptTimeout() != 5*time.Second {
		t.Fatalf("unexpected accept timeout: %v", cfg.AcceptTimeout())
	}
	if cfg.CallTimeout() != 0 {
		t.Fatalf("expected no call timeout by default, got %v", cfg.CallTimeout())
	}
	if cfg.Peer.Command != "halyardd" {
		t.Fatalf("unexpected peer command: %q", cfg.Peer.Command)
	}
	if !cfg.Peer.AutoStart {
		t.Fatal("expected peer auto start enabled by default")
	}
	if cfg.Trace.Enabled {
		t.Fatal("expected trace recording disabled by default")
	}
}

func TestLoadReadsFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "halyard.toml")
	content := strings.Join([]string{
		"[transport]",
		`socket_path = "` + filepath.Join(dir, "link.sock") + `"`,
		"accept_timeout_ms = 250",
		"call_timeout_ms = 1500",
		"",
		"[peer]",
		`command = "fake-peer"`,
		`args = ["--flag"]`,
		"auto_start = false",
		"",
		"[logging]",
		`format = "json"`,
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved existing path %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Transport.SocketPath != filepath.Join(dir, "link.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Transport.SocketPath)
	}
	if cfg.AcceptTimeout() != 250*time.Millisecond {
		t.Fatalf("unexpected accept timeout: %v", cfg.AcceptTimeout())
	}
	if cfg.CallTimeout() != 1500*time.Millisecond {
		t.Fatalf("unexpected call timeout: %v", cfg.CallTimeout())
	}
	if cfg.Peer.Command != "fake-peer" || len(cfg.Peer.Args) != 1 || cfg.Peer.AutoStart {
		t.Fatalf("unexpected peer config: %+v", cfg.Peer)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty socket path", func(c *config.Config) { c.Transport.SocketPath = "" }},
		{"oversized socket path", func(c *config.Config) {
			c.Transport.SocketPath = "/tmp/" + strings.Repeat("x", 120)
		}},
		{"negative accept timeout", func(c *config.Config) { c.Transport.AcceptTimeoutMS = -1 }},
		{"negative call timeout", func(c *config.Config) { c.Transport.CallTimeoutMS = -1 }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Transport.SocketPath = "/tmp/halyard-test.sock"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[transport]") {
		t.Fatal("sample config missing transport section")
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected second CreateSample to fail")
	}
}
