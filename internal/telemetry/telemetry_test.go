package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.IsEnabled())
	assert.NoError(t, tel.Err())
	assert.NotNil(t, tel.TracerProvider())
	assert.NotNil(t, tel.MeterProvider())
	assert.Nil(t, tel.LoggerProvider())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Protocol = "carrier-pigeon"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_EnabledWithoutCollector(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = "127.0.0.1:1"

	// Exporters connect lazily, so a missing collector is not a start-up error.
	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = tel.Shutdown(ctx)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"disabled skips validation", func(c *Config) { c.Endpoint = "" }, false},
		{"enabled defaults", func(c *Config) { c.Enabled = true }, false},
		{"http protocol", func(c *Config) { c.Enabled = true; c.Protocol = "http/protobuf" }, false},
		{"missing endpoint", func(c *Config) { c.Enabled = true; c.Endpoint = "" }, true},
		{"insecure remote", func(c *Config) { c.Enabled = true; c.Endpoint = "collector.example.com:4317" }, true},
		{"secure remote", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "collector.example.com:4317"
			c.Insecure = false
		}, false},
		{"bad sampling", func(c *Config) { c.Enabled = true; c.SampleRate = 1.5 }, true},
		{"metrics off", func(c *Config) { c.Enabled = true; c.MetricInterval = 0 }, false},
		{"negative interval", func(c *Config) { c.Enabled = true; c.MetricInterval = -time.Second }, true},
		{"zero shutdown timeout", func(c *Config) { c.Enabled = true; c.ShutdownTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsLoopback(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":        true,
		"127.0.0.1:4317":        true,
		"[::1]:4317":            true,
		"http://localhost:4318": true,
		"otel.internal:4317":    false,
		"10.0.0.5:4317":         false,
	}
	for endpoint, want := range tests {
		assert.Equal(t, want, isLoopback(endpoint), endpoint)
	}
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "host:4318", hostPort("https://host:4318"))
	assert.Equal(t, "host:4318", hostPort("http://host:4318"))
	assert.Equal(t, "host:4317", hostPort("host:4317"))
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry
	assert.NotNil(t, tel.TracerProvider())
	assert.NotNil(t, tel.MeterProvider())
	assert.Nil(t, tel.LoggerProvider())
	assert.False(t, tel.IsEnabled())
	assert.NoError(t, tel.Err())
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestTestTelemetry(t *testing.T) {
	tt := NewTestTelemetry()
	ctx := context.Background()

	_, span := tt.TracerProvider().Tracer("test").Start(ctx, "ledger.record")
	span.SetAttributes(attribute.String("processor", "search"), attribute.Int("saved", 120))
	span.End()

	tt.AssertSpanAttribute(t, "ledger.record", "processor", "search")
	tt.AssertSpanAttribute(t, "ledger.record", "saved", int64(120))
	assert.Nil(t, tt.SpanByName("missing"))

	counter, err := tt.MeterProvider().Meter("test").Int64Counter("compression.operations_total")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	names, err := tt.MetricNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"compression.operations_total"}, names)

	require.NoError(t, tt.Shutdown(ctx))
}
