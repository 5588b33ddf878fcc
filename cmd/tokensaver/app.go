package main

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tokensaver/internal/compression"
	"github.com/fyrsmithlabs/tokensaver/internal/config"
	"github.com/fyrsmithlabs/tokensaver/internal/ledger"
	"github.com/fyrsmithlabs/tokensaver/internal/logging"
	"github.com/fyrsmithlabs/tokensaver/internal/secrets"
	"github.com/fyrsmithlabs/tokensaver/internal/telemetry"
)

// app holds the process-wide dependencies of one invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	ledger    *ledger.Ledger
}

// newApp loads configuration and initializes telemetry and logging.
// Telemetry problems degrade to no-op; they never fail the command.
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a := &app{cfg: cfg}

	tel, telErr := telemetry.New(ctx, telemetryConfig(cfg))
	if telErr == nil {
		a.telemetry = tel
		telErr = tel.Err()
	}

	logger, err := logging.NewLogger(a.loggingConfig(), a.logProvider())
	if err != nil {
		a.shutdownTelemetry(ctx)
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	if telErr != nil {
		logger.Warn(ctx, "telemetry degraded", zap.Error(telErr))
	}
	if len(cfg.Rejected) > 0 {
		logger.Warn(ctx, "invalid config values replaced with defaults",
			zap.Strings("keys", cfg.Rejected))
	}
	return a, nil
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.TelemetryEnabled
	tc.Endpoint = cfg.TelemetryEndpoint
	tc.Protocol = cfg.TelemetryProtocol
	tc.ServiceVersion = version
	return tc
}

func (a *app) loggingConfig() *logging.Config {
	lc := logging.NewDefaultConfig()
	lc.Level = logging.LevelFor(a.cfg.Debug)
	lc.Format = a.cfg.LogFormat
	if a.cfg.Debug {
		if err := os.MkdirAll(a.cfg.DBDir, 0700); err == nil {
			lc.Output.File = a.cfg.LogPath()
		}
	}
	lc.Output.OTEL = a.telemetry != nil && a.telemetry.IsEnabled()
	return lc
}

func (a *app) logProvider() log.LoggerProvider {
	if a.telemetry == nil || !a.telemetry.IsEnabled() {
		return nil
	}
	return a.telemetry.LoggerProvider()
}

// sessionID returns the configured session or a fresh one.
func (a *app) sessionID() string {
	if a.cfg.Session != "" {
		return a.cfg.Session
	}
	return ledger.NewSessionID()
}

// openLedger opens the savings ledger for sessionID.
func (a *app) openLedger(ctx context.Context, sessionID string) error {
	opts := ledger.Options{
		Path:          a.cfg.DBPath(),
		SessionID:     sessionID,
		RetentionDays: a.cfg.RetentionDays,
		BusyTimeout:   a.cfg.BusyTimeout.Duration(),
		Logger:        a.logger.Named("ledger"),
	}
	if a.cfg.RedactCommands {
		opts.Redactor = secrets.Default()
	}
	l, err := ledger.Open(ctx, opts)
	if err != nil {
		return err
	}
	a.ledger = l
	a.logger.Debug(ctx, "ledger opened", zap.String("path", l.Path()))
	return nil
}

func (a *app) compressionConfig() compression.Config {
	return compression.Config{
		MinInputLength:      a.cfg.MinInputLength,
		MinCompressionRatio: a.cfg.MinCompressionRatio,
		TruncateThreshold:   a.cfg.GenericTruncateThreshold,
		KeepHead:            a.cfg.GenericKeepHead,
		KeepTail:            a.cfg.GenericKeepTail,
	}
}

// newService builds the compression pipeline, recording into the ledger
// when one is open.
func (a *app) newService(platform string) (*compression.Service, error) {
	if platform == "" {
		platform = a.cfg.Platform
	}
	opts := []compression.Option{
		compression.WithLogger(a.logger.Named("compression").With(zap.String("platform", platform))),
		compression.WithPlatform(platform),
	}
	if a.telemetry != nil {
		opts = append(opts,
			compression.WithTracerProvider(a.telemetry.TracerProvider()),
			compression.WithMeterProvider(a.telemetry.MeterProvider()),
		)
	}
	if a.ledger != nil {
		opts = append(opts, compression.WithRecorder(a.ledger))
	}
	return compression.NewBuiltinService(a.compressionConfig(), opts...)
}

// Close releases the ledger, flushes telemetry and syncs the logger.
func (a *app) Close(ctx context.Context) {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.logger.Warn(ctx, "failed to close ledger", zap.Error(err))
		}
	}
	a.shutdownTelemetry(ctx)
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

func (a *app) shutdownTelemetry(ctx context.Context) {
	if a.telemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryConfig(a.cfg).ShutdownTimeout)
	defer cancel()
	_ = a.telemetry.Shutdown(ctx)
}
