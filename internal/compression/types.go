package compression

import (
	"context"
	"time"
)

// FallbackPriority is the priority of the generic processor. Exactly one
// registered processor must use it and it must match every command.
const FallbackPriority = 999

// Processor compresses the output of one family of commands.
//
// Implementations must be stateless and safe for concurrent use. Process must
// not fail on well-formed text; output it does not recognise is returned
// unchanged.
type Processor interface {
	// Name identifies the processor in ledger rows.
	Name() string

	// Priority orders processors; lower values are tried first.
	Priority() int

	// HookPatterns are regular expressions used by the eligibility gate to
	// decide whether a command is routed through compression at all.
	HookPatterns() []string

	// CanHandle reports whether this processor applies to the command.
	CanHandle(command string) bool

	// Process returns the compressed form of output.
	Process(command, output string) (string, error)
}

// Recorder receives one call per accepted compression.
//
// Implementations handle their own failures; a recorder must never affect
// the output returned to the caller.
type Recorder interface {
	Record(ctx context.Context, command, processor string, originalSize, compressedSize int, platform string)
}

// Config holds the acceptance thresholds and generic truncation settings.
type Config struct {
	// MinInputLength is the smallest output, in bytes, worth compressing.
	MinInputLength int

	// MinCompressionRatio is the minimum (original-compressed)/original a
	// result must reach to be used.
	MinCompressionRatio float64

	// TruncateThreshold is the line count above which generic output keeps
	// only its head and tail.
	TruncateThreshold int

	// KeepHead and KeepTail are the lines kept around a truncation.
	KeepHead int
	KeepTail int
}

// DefaultConfig returns the built-in thresholds.
func DefaultConfig() Config {
	return Config{
		MinInputLength:      200,
		MinCompressionRatio: 0.10,
		TruncateThreshold:   500,
		KeepHead:            200,
		KeepTail:            100,
	}
}

// Outcome describes what the pipeline did with an invocation.
type Outcome string

const (
	// OutcomeAccepted means the compressed output was returned and recorded.
	OutcomeAccepted Outcome = "accepted"
	// OutcomeBelowMinLength means the output was too small to process.
	OutcomeBelowMinLength Outcome = "below_min_length"
	// OutcomeBelowRatio means compression did not save enough to be used.
	OutcomeBelowRatio Outcome = "below_ratio"
	// OutcomeFailed means the processor failed and the original was returned.
	OutcomeFailed Outcome = "failed"
)

// Result represents the result of one pipeline invocation.
type Result struct {
	// Output is the text to hand back to the caller. It is the original
	// output unless Outcome is OutcomeAccepted.
	Output string

	// Processor is the name of the selected processor, empty when none ran.
	Processor string

	Outcome Outcome

	OriginalSize   int
	CompressedSize int

	// Processing time
	Duration time.Duration
}

// Accepted reports whether the compressed output was used.
func (r Result) Accepted() bool {
	return r.Outcome == OutcomeAccepted
}

// Saved returns the number of bytes removed from the output.
func (r Result) Saved() int {
	return r.OriginalSize - r.CompressedSize
}
