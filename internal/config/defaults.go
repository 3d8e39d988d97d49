package config

import "time"

const (
	defaultSocketPath    = "~/.local/share/halyard/halyard.sock"
	defaultLogDir        = "~/.local/share/halyard/logs"
	defaultTraceDBPath   = "~/.local/share/halyard/trace.db"
	defaultPeerCommand   = "halyardd"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultAcceptTimeout = 5 * time.Second
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Transport: Transport{
			SocketPath:      defaultSocketPath,
			AcceptTimeoutMS: int(defaultAcceptTimeout / time.Millisecond),
		},
		Peer: Peer{
			Command:   defaultPeerCommand,
			AutoStart: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			Dir:    defaultLogDir,
		},
		Trace: Trace{
			Enabled: false,
			DBPath:  defaultTraceDBPath,
		},
	}
}
