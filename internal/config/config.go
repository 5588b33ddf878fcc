// Package config loads tokensaver settings from an optional YAML file and
// TOKEN_SAVER_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds every setting. Each key is validated on its own; a key with
// an unusable value keeps its default and is listed in Rejected.
type Config struct {
	MinInputLength           int      `json:"min_input_length"`
	MinCompressionRatio      float64  `json:"min_compression_ratio"`
	GenericTruncateThreshold int      `json:"generic_truncate_threshold"`
	GenericKeepHead          int      `json:"generic_keep_head"`
	GenericKeepTail          int      `json:"generic_keep_tail"`
	RetentionDays            int      `json:"retention_days"`
	BusyTimeout              Duration `json:"busy_timeout"`
	DBDir                    string   `json:"db_dir"`
	Session                  string   `json:"session"`
	Platform                 string   `json:"platform"`
	RedactCommands           bool     `json:"redact_commands"`
	Debug                    bool     `json:"debug"`
	LogFormat                string   `json:"log_format"`
	TelemetryEnabled         bool     `json:"telemetry_enabled"`
	TelemetryEndpoint        string   `json:"telemetry_endpoint"`
	TelemetryProtocol        string   `json:"telemetry_protocol"`

	// Rejected lists keys whose configured value was invalid.
	Rejected []string `json:"rejected,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		MinInputLength:           200,
		MinCompressionRatio:      0.10,
		GenericTruncateThreshold: 500,
		GenericKeepHead:          200,
		GenericKeepTail:          100,
		RetentionDays:            90,
		BusyTimeout:              Duration(10 * time.Second),
		DBDir:                    DefaultDir(),
		Platform:                 "claude_code",
		RedactCommands:           true,
		LogFormat:                "console",
		TelemetryEndpoint:        "localhost:4317",
		TelemetryProtocol:        "grpc",
	}
}

// DefaultDir returns ~/.config/tokensaver, or a relative .tokensaver when
// the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tokensaver"
	}
	return filepath.Join(home, ".config", "tokensaver")
}

// DBPath returns the ledger database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.DBDir, "savings.db")
}

// LogPath returns the debug log path.
func (c *Config) LogPath() string {
	return filepath.Join(c.DBDir, "hook.log")
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
