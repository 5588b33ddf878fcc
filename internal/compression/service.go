package compression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tokensaver/internal/logging"
)

const tracerName = "github.com/fyrsmithlabs/tokensaver/internal/compression"
const meterName = "compression"

// DefaultPlatform tags ledger rows when no platform is configured.
const DefaultPlatform = "claude_code"

// errProcessorPanic marks a panic recovered from a processor.
var errProcessorPanic = errors.New("processor panicked")

// Service selects a processor per command, applies it, and decides whether
// the result is worth using.
type Service struct {
	registry *Registry
	config   Config
	recorder Recorder
	logger   *logging.Logger
	platform string

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	operations metric.Int64Counter
	ratio      metric.Float64Histogram
	errors     metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the ledger that accepted compressions are written to.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithPlatform sets the platform tag written with each record.
func WithPlatform(platform string) Option {
	return func(s *Service) {
		if platform != "" {
			s.platform = platform
		}
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter(meterName) }
}

// NewService creates a new compression service
func NewService(registry *Registry, config Config, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: registry is nil", ErrInvalidRegistry)
	}

	s := &Service{
		registry: registry,
		config:   config,
		platform: DefaultPlatform,
		logger:   logging.FromContext(context.Background()),
		tracer:   otel.Tracer(tracerName),
		meter:    otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return s, nil
}

// Compress runs the pipeline for one command invocation. It never fails:
// whenever compression is not possible or not worthwhile the original
// output is returned unchanged.
func (s *Service) Compress(ctx context.Context, command, output string) Result {
	ctx, span := s.tracer.Start(ctx, "compression.compress",
		trace.WithAttributes(
			attribute.Int("command_length", len(command)),
			attribute.Int("original_size", len(output)),
		),
	)
	defer span.End()

	start := time.Now()
	result := Result{
		Output:         output,
		OriginalSize:   len(output),
		CompressedSize: len(output),
	}

	if len(output) == 0 || len(output) < s.config.MinInputLength {
		result.Outcome = OutcomeBelowMinLength
		result.Duration = time.Since(start)
		s.observe(ctx, span, result)
		return result
	}

	processor := s.registry.Select(command)
	result.Processor = processor.Name()

	compressed, err := runProcessor(processor, command, output)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processor failed")
		s.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("processor", processor.Name())))
		s.logger.Warn(ctx, "processor failed, passing output through",
			zap.String("processor", processor.Name()),
			zap.Error(err),
		)
		result.Outcome = OutcomeFailed
		result.Duration = time.Since(start)
		s.observe(ctx, span, result)
		return result
	}

	compressed = Clean(compressed)

	saved := float64(len(output)-len(compressed)) / float64(len(output))
	if saved < s.config.MinCompressionRatio {
		result.Outcome = OutcomeBelowRatio
		result.Duration = time.Since(start)
		s.observe(ctx, span, result)
		return result
	}

	result.Output = compressed
	result.CompressedSize = len(compressed)
	result.Outcome = OutcomeAccepted
	result.Duration = time.Since(start)

	if s.recorder != nil {
		s.recorder.Record(ctx, command, processor.Name(), result.OriginalSize, result.CompressedSize, s.platform)
	}

	s.observe(ctx, span, result)
	s.logger.Debug(ctx, "output compressed",
		zap.String("processor", result.Processor),
		zap.Int("original_size", result.OriginalSize),
		zap.Int("compressed_size", result.CompressedSize),
	)
	return result
}

// runProcessor invokes the processor and converts a panic into an error so a
// defective processor cannot take the caller down with it.
func runProcessor(p Processor, command, output string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
			err = fmt.Errorf("%w: %s: %v", errProcessorPanic, p.Name(), r)
		}
	}()
	return p.Process(command, output)
}

func (s *Service) observe(ctx context.Context, span trace.Span, r Result) {
	attrs := metric.WithAttributes(
		attribute.String("processor", r.Processor),
		attribute.String("outcome", string(r.Outcome)),
	)
	s.operations.Add(ctx, 1, attrs)
	if r.Accepted() && r.OriginalSize > 0 {
		s.ratio.Record(ctx, float64(r.Saved())/float64(r.OriginalSize),
			metric.WithAttributes(attribute.String("processor", r.Processor)))
	}

	span.SetAttributes(
		attribute.String("processor", r.Processor),
		attribute.String("outcome", string(r.Outcome)),
		attribute.Int("compressed_size", r.CompressedSize),
		attribute.Float64("processing_time_s", r.Duration.Seconds()),
	)
}

// initMetrics initializes OpenTelemetry metrics
func (s *Service) initMetrics() error {
	var err error

	s.operations, err = s.meter.Int64Counter(
		"compression.operations_total",
		metric.WithDescription("Total number of pipeline invocations by processor and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create operations counter: %w", err)
	}

	s.ratio, err = s.meter.Float64Histogram(
		"compression.ratio",
		metric.WithDescription("Fraction of bytes removed from accepted outputs"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.5, 0.7, 0.9),
	)
	if err != nil {
		return fmt.Errorf("failed to create ratio histogram: %w", err)
	}

	s.errors, err = s.meter.Int64Counter(
		"compression.errors_total",
		metric.WithDescription("Total number of processor failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create errors counter: %w", err)
	}

	return nil
}
