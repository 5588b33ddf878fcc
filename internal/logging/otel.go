package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const instrumentationName = "github.com/fyrsmithlabs/tokensaver"

// newCore tees every enabled sink. The returned func closes the log file.
func newCore(cfg *Config, provider log.LoggerProvider) (zapcore.Core, func(), error) {
	var cores []zapcore.Core
	closeFn := func() {}

	if cfg.Output.Stderr || cfg.Output.File != "" {
		enc := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
		if cfg.Output.Stderr {
			cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(os.Stderr), cfg.Level))
		}
		if cfg.Output.File != "" {
			sink, closeSink, err := zap.Open(cfg.Output.File)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open log file: %w", err)
			}
			closeFn = closeSink
			cores = append(cores, zapcore.NewCore(enc.Clone(), sink, cfg.Level))
		}
	}

	if cfg.Output.OTEL && provider != nil {
		otelCore := otelzap.NewCore(instrumentationName, otelzap.WithLoggerProvider(provider))
		cores = append(cores, levelCore{Core: otelCore, level: cfg.Level})
	}

	if len(cores) == 0 {
		closeFn()
		return nil, nil, fmt.Errorf("no log output available")
	}
	return zapcore.NewTee(cores...), closeFn, nil
}

// levelCore applies the configured level to a core that has none.
type levelCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c levelCore) Enabled(l zapcore.Level) bool {
	return l >= c.level && c.Core.Enabled(l)
}

func (c levelCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c levelCore) With(fields []zapcore.Field) zapcore.Core {
	return levelCore{Core: c.Core.With(fields), level: c.level}
}
