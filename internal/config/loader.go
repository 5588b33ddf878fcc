package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TOKEN_SAVER_"
)

// field binds one configuration key to a parser that stores a valid value
// and reports whether the raw value was accepted.
type field struct {
	key string
	set func(c *Config, raw string) bool
}

var fields = []field{
	{"min_input_length", func(c *Config, raw string) bool {
		return setInt(&c.MinInputLength, raw, 0)
	}},
	{"min_compression_ratio", func(c *Config, raw string) bool {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || v < 0 || v >= 1 {
			return false
		}
		c.MinCompressionRatio = v
		return true
	}},
	{"generic_truncate_threshold", func(c *Config, raw string) bool {
		return setInt(&c.GenericTruncateThreshold, raw, 1)
	}},
	{"generic_keep_head", func(c *Config, raw string) bool {
		return setInt(&c.GenericKeepHead, raw, 1)
	}},
	{"generic_keep_tail", func(c *Config, raw string) bool {
		return setInt(&c.GenericKeepTail, raw, 1)
	}},
	{"retention_days", func(c *Config, raw string) bool {
		return setInt(&c.RetentionDays, raw, 1)
	}},
	{"busy_timeout", func(c *Config, raw string) bool {
		d, err := ParseDuration(raw)
		if err != nil || d <= 0 {
			return false
		}
		c.BusyTimeout = Duration(d)
		return true
	}},
	{"db_dir", func(c *Config, raw string) bool {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return false
		}
		c.DBDir = expandHome(raw)
		return true
	}},
	{"session", func(c *Config, raw string) bool {
		c.Session = strings.TrimSpace(raw)
		return true
	}},
	{"platform", func(c *Config, raw string) bool {
		return setNonEmpty(&c.Platform, raw)
	}},
	{"redact_commands", func(c *Config, raw string) bool {
		return setBool(&c.RedactCommands, raw)
	}},
	{"debug", func(c *Config, raw string) bool {
		return setBool(&c.Debug, raw)
	}},
	{"log_format", func(c *Config, raw string) bool {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw != "json" && raw != "console" {
			return false
		}
		c.LogFormat = raw
		return true
	}},
	{"telemetry_enabled", func(c *Config, raw string) bool {
		return setBool(&c.TelemetryEnabled, raw)
	}},
	{"telemetry_endpoint", func(c *Config, raw string) bool {
		return setNonEmpty(&c.TelemetryEndpoint, raw)
	}},
	{"telemetry_protocol", func(c *Config, raw string) bool {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "grpc":
			c.TelemetryProtocol = "grpc"
		case "http", "http/protobuf":
			c.TelemetryProtocol = "http/protobuf"
		default:
			return false
		}
		return true
	}},
}

// Keys returns the recognised configuration keys.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.key
	}
	return keys
}

// Load reads the YAML file at configPath (default
// ~/.config/tokensaver/config.yaml), then applies TOKEN_SAVER_* environment
// overrides.
//
// A missing file is not an error. A file outside the allowed directories,
// with permissions other than 0600/0400, larger than 1MB or with invalid
// YAML is. Individual values never fail the load: invalid ones keep their
// default and are reported in Config.Rejected.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		configPath = filepath.Join(DefaultDir(), "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// TOKEN_SAVER_MIN_INPUT_LENGTH -> min_input_length
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return fromKoanf(k), nil
}

// fromKoanf applies every present key over the defaults.
func fromKoanf(k *koanf.Koanf) *Config {
	cfg := Defaults()
	for _, f := range fields {
		if !k.Exists(f.key) {
			continue
		}
		if !f.set(cfg, fmt.Sprint(k.Get(f.key))) {
			cfg.Rejected = append(cfg.Rejected, f.key)
		}
	}
	return cfg
}

// readConfigFile returns the file content, or nil when the file does not
// exist. Properties are checked on the open descriptor to avoid a TOCTOU
// race.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: more than %d bytes", maxConfigFileSize)
	}
	return content, nil
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so they cannot escape the allowed directories. Paths
	// that do not exist yet are checked as given.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	for _, dir := range allowedConfigDirs() {
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/tokensaver/ or /etc/tokensaver/")
}

func allowedConfigDirs() []string {
	dirs := []string{"/etc/tokensaver"}
	if home, err := os.UserHomeDir(); err == nil {
		dir := filepath.Join(home, ".config", "tokensaver")
		dirs = append(dirs, dir)
		// Allow the resolved form too, e.g. when HOME sits behind a symlink.
		if resolved, err := filepath.EvalSymlinks(dir); err == nil && resolved != dir {
			dirs = append(dirs, resolved)
		}
	}
	return dirs
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

func setInt(dst *int, raw string, floor int) bool {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < floor {
		return false
	}
	*dst = v
	return true
}

func setBool(dst *bool, raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	*dst = v
	return true
}

func setNonEmpty(dst *string, raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	*dst = raw
	return true
}
