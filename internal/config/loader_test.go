package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir and clears every override so tests do
// not see the developer's own settings.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range Keys() {
		t.Setenv(EnvPrefix+strings.ToUpper(key), "")
		os.Unsetenv(EnvPrefix + strings.ToUpper(key))
	}
	return home
}

func writeConfig(t *testing.T, home, body string, perm os.FileMode) string {
	t.Helper()
	dir := filepath.Join(home, ".config", "tokensaver")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.MinInputLength)
	assert.Equal(t, 0.10, cfg.MinCompressionRatio)
	assert.Equal(t, 500, cfg.GenericTruncateThreshold)
	assert.Equal(t, 200, cfg.GenericKeepHead)
	assert.Equal(t, 100, cfg.GenericKeepTail)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 10*time.Second, cfg.BusyTimeout.Duration())
	assert.Equal(t, filepath.Join(home, ".config", "tokensaver"), cfg.DBDir)
	assert.Equal(t, "claude_code", cfg.Platform)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.False(t, cfg.Debug)
	assert.True(t, cfg.RedactCommands)
	assert.False(t, cfg.TelemetryEnabled)
	assert.Empty(t, cfg.Session)
	assert.Empty(t, cfg.Rejected)
	assert.Equal(t, filepath.Join(cfg.DBDir, "savings.db"), cfg.DBPath())
}

func TestLoad_File(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, `
min_input_length: 50
min_compression_ratio: 0.25
busy_timeout: 3s
debug: true
db_dir: ~/ledger
telemetry_protocol: http
`, 0600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MinInputLength)
	assert.Equal(t, 0.25, cfg.MinCompressionRatio)
	assert.Equal(t, 3*time.Second, cfg.BusyTimeout.Duration())
	assert.True(t, cfg.Debug)
	assert.Equal(t, filepath.Join(home, "ledger"), cfg.DBDir)
	assert.Equal(t, "http/protobuf", cfg.TelemetryProtocol)
	assert.Empty(t, cfg.Rejected)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := isolate(t)
	path := writeConfig(t, home, "min_input_length: 50\nplatform: cursor\n", 0600)

	t.Setenv("TOKEN_SAVER_MIN_INPUT_LENGTH", "75")
	t.Setenv("TOKEN_SAVER_SESSION", "abc123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.MinInputLength)
	assert.Equal(t, "cursor", cfg.Platform)
	assert.Equal(t, "abc123", cfg.Session)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	isolate(t)

	tests := []struct {
		key   string
		value string
		check func(*testing.T, *Config)
	}{
		{"MIN_INPUT_LENGTH", "abc", func(t *testing.T, c *Config) { assert.Equal(t, 200, c.MinInputLength) }},
		{"MIN_INPUT_LENGTH", "-5", func(t *testing.T, c *Config) { assert.Equal(t, 200, c.MinInputLength) }},
		{"MIN_COMPRESSION_RATIO", "1.5", func(t *testing.T, c *Config) { assert.Equal(t, 0.10, c.MinCompressionRatio) }},
		{"MIN_COMPRESSION_RATIO", "NaN", func(t *testing.T, c *Config) { assert.Equal(t, 0.10, c.MinCompressionRatio) }},
		{"GENERIC_KEEP_HEAD", "0", func(t *testing.T, c *Config) { assert.Equal(t, 200, c.GenericKeepHead) }},
		{"BUSY_TIMEOUT", "soon", func(t *testing.T, c *Config) { assert.Equal(t, 10*time.Second, c.BusyTimeout.Duration()) }},
		{"BUSY_TIMEOUT", "1e300", func(t *testing.T, c *Config) { assert.Equal(t, 10*time.Second, c.BusyTimeout.Duration()) }},
		{"REDACT_COMMANDS", "sometimes", func(t *testing.T, c *Config) { assert.True(t, c.RedactCommands) }},
		{"DEBUG", "maybe", func(t *testing.T, c *Config) { assert.False(t, c.Debug) }},
		{"LOG_FORMAT", "xml", func(t *testing.T, c *Config) { assert.Equal(t, "console", c.LogFormat) }},
		{"TELEMETRY_PROTOCOL", "udp", func(t *testing.T, c *Config) { assert.Equal(t, "grpc", c.TelemetryProtocol) }},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(EnvPrefix+tt.key, tt.value)

			cfg, err := Load("")
			require.NoError(t, err)
			tt.check(t, cfg)
			assert.Contains(t, cfg.Rejected, strings.ToLower(tt.key))
		})
	}
}

func TestLoad_ValidValuesNotRejected(t *testing.T) {
	isolate(t)
	t.Setenv("TOKEN_SAVER_DEBUG", "1")
	t.Setenv("TOKEN_SAVER_BUSY_TIMEOUT", "2.5")
	t.Setenv("TOKEN_SAVER_MIN_INPUT_LENGTH", "0")
	t.Setenv("TOKEN_SAVER_MIN_COMPRESSION_RATIO", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 2500*time.Millisecond, cfg.BusyTimeout.Duration())
	assert.Equal(t, 0, cfg.MinInputLength)
	assert.Equal(t, 0.0, cfg.MinCompressionRatio)
	assert.Empty(t, cfg.Rejected)
}

func TestLoad_FileSecurity(t *testing.T) {
	t.Run("world readable", func(t *testing.T) {
		home := isolate(t)
		path := writeConfig(t, home, "debug: true\n", 0644)
		_, err := Load(path)
		assert.ErrorContains(t, err, "insecure config file permissions")
	})

	t.Run("outside allowed dirs", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0600))
		_, err := Load(path)
		assert.ErrorContains(t, err, "config path validation failed")
	})

	t.Run("sibling prefix", func(t *testing.T) {
		home := isolate(t)
		path := filepath.Join(home, ".config", "tokensaver-evil", "config.yaml")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("too large", func(t *testing.T) {
		home := isolate(t)
		big := make([]byte, maxConfigFileSize+10)
		for i := range big {
			big[i] = '#'
		}
		path := writeConfig(t, home, string(big), 0600)
		_, err := Load(path)
		assert.ErrorContains(t, err, "too large")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		home := isolate(t)
		path := writeConfig(t, home, "debug: [unterminated\n", 0600)
		_, err := Load(path)
		assert.ErrorContains(t, err, "failed to load config file")
	})
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("150ms")))
	assert.Equal(t, 150*time.Millisecond, d.Duration())

	require.NoError(t, d.UnmarshalText([]byte("10")))
	assert.Equal(t, 10*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("later")))

	text, err := Duration(2 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}

func TestParseDuration_OutOfRange(t *testing.T) {
	for _, in := range []string{"Inf", "-Inf", "NaN", "1e300", "-1e300", "9300000000"} {
		_, err := ParseDuration(in)
		assert.Error(t, err, in)
	}

	d, err := ParseDuration("9000000000")
	require.NoError(t, err)
	assert.Equal(t, 9000000000*time.Second, d)
}
