package compression

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidRegistry is returned when a processor set violates the fallback
// invariant. It indicates a programming mistake and is fatal at startup.
var ErrInvalidRegistry = errors.New("invalid processor registry")

// fallbackProbes are commands the fallback processor must accept. A
// processor that rejects any of them is conditional and cannot be last.
var fallbackProbes = []string{
	"",
	" ",
	"true",
	"./run.sh --flag value",
	"zz-no-processor-should-claim-this-command",
}

// Registry holds processors ordered by priority.
type Registry struct {
	processors []Processor
	patterns   []string
}

// NewRegistry orders processors by ascending priority, keeping registration
// order for ties, and validates that the generic fallback is last.
func NewRegistry(processors ...Processor) (*Registry, error) {
	if len(processors) == 0 {
		return nil, fmt.Errorf("%w: no processors registered", ErrInvalidRegistry)
	}

	ordered := make([]Processor, len(processors))
	copy(ordered, processors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	if err := validateFallback(ordered); err != nil {
		return nil, err
	}

	var patterns []string
	for _, p := range ordered {
		patterns = append(patterns, p.HookPatterns()...)
	}

	return &Registry{
		processors: ordered,
		patterns:   patterns,
	}, nil
}

func validateFallback(ordered []Processor) error {
	fallbacks := 0
	for _, p := range ordered {
		if p.Priority() == FallbackPriority {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		return fmt.Errorf("%w: expected exactly one processor with priority %d, found %d",
			ErrInvalidRegistry, FallbackPriority, fallbacks)
	}

	last := ordered[len(ordered)-1]
	if last.Priority() != FallbackPriority {
		return fmt.Errorf("%w: last processor %q has priority %d, want %d",
			ErrInvalidRegistry, last.Name(), last.Priority(), FallbackPriority)
	}

	for _, probe := range fallbackProbes {
		if !last.CanHandle(probe) {
			return fmt.Errorf("%w: fallback processor %q does not handle %q",
				ErrInvalidRegistry, last.Name(), probe)
		}
	}
	return nil
}

// Processors returns the processors in priority order.
func (r *Registry) Processors() []Processor {
	out := make([]Processor, len(r.processors))
	copy(out, r.processors)
	return out
}

// Select returns the first processor that can handle the command. The
// fallback guarantees a match.
func (r *Registry) Select(command string) Processor {
	for _, p := range r.processors {
		if p.CanHandle(command) {
			return p
		}
	}
	return r.processors[len(r.processors)-1]
}

// HookPatterns returns every processor's hook patterns in registry order.
func (r *Registry) HookPatterns() []string {
	out := make([]string, len(r.patterns))
	copy(out, r.patterns)
	return out
}
