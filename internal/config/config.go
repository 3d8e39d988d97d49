package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Transport contains socket placement and deadline configuration.
type Transport struct {
	SocketPath string `toml:"socket_path"`
	// AcceptTimeoutMS bounds each of the two inbound connections during
	// link bring-up. Zero falls back to the default.
	AcceptTimeoutMS int `toml:"accept_timeout_ms"`
	// CallTimeoutMS optionally bounds a full command round trip. Zero
	// means commands block until the peer responds.
	CallTimeoutMS int `toml:"call_timeout_ms"`
}

// Peer contains configuration for launching the peer daemon during link
// bring-up.
type Peer struct {
	Command   string   `toml:"command"`
	Args      []string `toml:"args"`
	AutoStart bool     `toml:"auto_start"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Trace contains configuration for the message trace store.
type Trace struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
}

// Config encapsulates all configuration values for Halyard.
type Config struct {
	Transport Transport `toml:"transport"`
	Peer      Peer      `toml:"peer"`
	Logging   Logging   `toml:"logging"`
	Trace     Trace     `toml:"trace"`
}

// AcceptTimeout returns the bring-up accept deadline as a duration.
func (c *Config) AcceptTimeout() time.Duration {
	if c.Transport.AcceptTimeoutMS <= 0 {
		return defaultAcceptTimeout
	}
	return time.Duration(c.Transport.AcceptTimeoutMS) * time.Millisecond
}

// CallTimeout returns the optional command round-trip deadline. Zero means
// no deadline.
func (c *Config) CallTimeout() time.Duration {
	if c.Transport.CallTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.Transport.CallTimeoutMS) * time.Millisecond
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/halyard/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("halyard.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the transport and logging need.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Transport.SocketPath),
		c.Logging.Dir,
	}
	if c.Trace.Enabled && strings.TrimSpace(c.Trace.DBPath) != "" {
		dirs = append(dirs, filepath.Dir(c.Trace.DBPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
