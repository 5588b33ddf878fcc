package telemetry

import (
	"fmt"
	"net"
	"time"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http/protobuf"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       string
	ServiceName    string
	ServiceVersion string

	// Insecure disables TLS. It is only accepted for loopback endpoints.
	Insecure bool

	// SampleRate is the parent-based trace sampling ratio, 0 to 1.
	SampleRate float64

	// MetricInterval is the periodic reader interval. Zero disables metrics.
	MetricInterval time.Duration

	// ShutdownTimeout bounds the final flush.
	ShutdownTimeout time.Duration
}

// NewDefaultConfig returns a disabled config aimed at a local collector.
func NewDefaultConfig() *Config {
	return &Config{
		Endpoint:        "localhost:4317",
		Protocol:        protocolGRPC,
		ServiceName:     "tokensaver",
		ServiceVersion:  "dev",
		Insecure:        true,
		SampleRate:      1.0,
		MetricInterval:  15 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

// Validate checks an enabled config. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	case c.Protocol != protocolGRPC && c.Protocol != protocolHTTP:
		return fmt.Errorf("protocol must be %q or %q, got %q", protocolGRPC, protocolHTTP, c.Protocol)
	case c.ServiceName == "":
		return fmt.Errorf("service name is required")
	case c.Insecure && !isLoopback(c.Endpoint):
		return fmt.Errorf("insecure export to non-loopback endpoint %q is not allowed", c.Endpoint)
	case c.SampleRate < 0 || c.SampleRate > 1:
		return fmt.Errorf("sample rate must be between 0 and 1, got %v", c.SampleRate)
	case c.MetricInterval < 0:
		return fmt.Errorf("metric interval must not be negative")
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// isLoopback reports whether endpoint names localhost or a loopback IP.
func isLoopback(endpoint string) bool {
	host := hostPort(endpoint)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
