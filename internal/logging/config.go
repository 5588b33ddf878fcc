package logging

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level     zapcore.Level
	Format    string
	Output    OutputConfig
	Redaction RedactionConfig
}

// OutputConfig selects the log sinks. Stdout is never a sink.
type OutputConfig struct {
	Stderr bool
	// File appends entries to a log file when non-empty.
	File string
	OTEL bool
}

// RedactionConfig controls masking of sensitive values.
type RedactionConfig struct {
	Enabled bool
	// Keys are field names whose values are always replaced.
	Keys []string
}

// NewDefaultConfig returns warnings and above on stderr, with redaction on.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.WarnLevel,
		Format: "console",
		Output: OutputConfig{Stderr: true},
		Redaction: RedactionConfig{
			Enabled: true,
			Keys: []string{
				"password", "secret", "token", "api_key",
				"authorization", "credential", "private_key",
			},
		},
	}
}

// LevelFor maps the debug switch to a level.
func LevelFor(debug bool) zapcore.Level {
	if debug {
		return zapcore.DebugLevel
	}
	return zapcore.WarnLevel
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if !c.Output.Stderr && c.Output.File == "" && !c.Output.OTEL {
		return fmt.Errorf("at least one output must be enabled (stderr, file or otel)")
	}
	for _, k := range c.Redaction.Keys {
		if k == "" {
			return fmt.Errorf("redaction key cannot be empty")
		}
	}
	return nil
}
