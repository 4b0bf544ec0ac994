package app

import (
	"fmt"
	"os"
)

// EnvConfigFile is the environment variable consulted for the
// configuration path when the --config flag is not given.
const EnvConfigFile = "YAANI_CONFIG_FILE"

// DefaultConfigFile is the fallback configuration path.
const DefaultConfigFile = "yaani.hcl"

// Config holds everything an App instance needs to run.
type Config struct {
	// ConfigPath is a single .hcl file or a directory of .hcl files.
	ConfigPath string
	// List requests the full inventory; Host requests one host's vars.
	List bool
	Host string

	LogFormat string
	LogLevel  string
	Workers   int
}

// NewConfig applies defaults and validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = os.Getenv(EnvConfigFile)
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = DefaultConfigFile
	}

	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	return &cfg, nil
}
