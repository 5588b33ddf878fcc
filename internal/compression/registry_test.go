package compression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProcessor is a configurable Processor for registry and service tests.
type stubProcessor struct {
	name     string
	priority int
	patterns []string
	handles  func(string) bool
	process  func(string, string) (string, error)
}

func (s *stubProcessor) Name() string           { return s.name }
func (s *stubProcessor) Priority() int          { return s.priority }
func (s *stubProcessor) HookPatterns() []string { return s.patterns }

func (s *stubProcessor) CanHandle(command string) bool {
	if s.handles == nil {
		return true
	}
	return s.handles(command)
}

func (s *stubProcessor) Process(command, output string) (string, error) {
	if s.process == nil {
		return output, nil
	}
	return s.process(command, output)
}

func TestNewRegistry_OrdersByPriority(t *testing.T) {
	reg, err := NewRegistry(Builtin(DefaultConfig())...)
	require.NoError(t, err)

	var names []string
	for _, p := range reg.Processors() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"package_list", "network", "terraform", "search", "generic"}, names)
}

func TestNewRegistry_StableForTies(t *testing.T) {
	first := &stubProcessor{name: "first", priority: 20, handles: func(string) bool { return false }}
	second := &stubProcessor{name: "second", priority: 20, handles: func(string) bool { return false }}

	reg, err := NewRegistry(NewGeneric(DefaultConfig()), second, first)
	require.NoError(t, err)

	procs := reg.Processors()
	require.Len(t, procs, 3)
	assert.Equal(t, "second", procs[0].Name())
	assert.Equal(t, "first", procs[1].Name())
	assert.Equal(t, GenericName, procs[2].Name())
}

func TestNewRegistry_RejectsInvalidSets(t *testing.T) {
	tests := []struct {
		name       string
		processors []Processor
	}{
		{
			name: "empty",
		},
		{
			name: "no fallback",
			processors: []Processor{
				&stubProcessor{name: "a", priority: 10},
				&stubProcessor{name: "b", priority: 500},
			},
		},
		{
			name: "last sorts above fallback",
			processors: []Processor{
				NewGeneric(DefaultConfig()),
				&stubProcessor{name: "late", priority: 1000},
			},
		},
		{
			name: "two fallbacks",
			processors: []Processor{
				NewGeneric(DefaultConfig()),
				&stubProcessor{name: "other", priority: FallbackPriority},
			},
		},
		{
			name: "conditional fallback",
			processors: []Processor{
				&stubProcessor{name: "picky", priority: FallbackPriority, handles: func(c string) bool { return c != "" }},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.processors...)
			assert.ErrorIs(t, err, ErrInvalidRegistry)
		})
	}
}

func TestRegistry_Select(t *testing.T) {
	reg, err := NewRegistry(Builtin(DefaultConfig())...)
	require.NoError(t, err)

	tests := map[string]string{
		"pip list":                       "package_list",
		"npm ls --all":                   "package_list",
		"curl -v https://example.com":    "network",
		"wget https://example.com/a.tgz": "network",
		"terraform plan -out tf.plan":    "terraform",
		"tofu apply":                     "terraform",
		"grep -rn TODO .":                "search",
		"rg foo":                         "search",
		"git log":                        "generic",
		"":                               "generic",
	}
	for command, want := range tests {
		assert.Equal(t, want, reg.Select(command).Name(), "command %q", command)
	}
}

func TestRegistry_HookPatterns(t *testing.T) {
	reg, err := NewRegistry(Builtin(DefaultConfig())...)
	require.NoError(t, err)

	patterns := reg.HookPatterns()
	require.Len(t, patterns, 4)
	assert.Equal(t, `^(curl|wget)\b`, patterns[1])
	assert.Equal(t, `^(grep|rg|ag)\b`, patterns[3])
}
