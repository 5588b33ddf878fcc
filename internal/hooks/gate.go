package hooks

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// ErrInvalidPattern is returned when a hook pattern does not compile.
var ErrInvalidPattern = errors.New("invalid hook pattern")

// exclusionTimeout bounds a single exclusion match.
const exclusionTimeout = 100 * time.Millisecond

type exclusion struct {
	name string
	re   *regexp2.Regexp
}

// exclusionRules are checked against the trimmed command before any hook
// pattern. The quote lookarounds let a quoted lone operator such as
// `grep "|" file` through.
var exclusionRules = []struct {
	name, expr string
}{
	{"unquoted pipe", `(?<!['"])\|(?!['"])`},
	{"unquoted and", `(?<!['"])&&(?!['"])`},
	{"unquoted or", `(?<!['"])\|\|(?!['"])`},
	{"editor", `^\s*(vi|vim|nano|emacs|code)\b`},
	{"remote shell", `^\s*(ssh|scp|rsync)\b`},
	{"self reference", `token.saver|tokensaver`},
	{"redirection", `>\s`},
	{"process substitution", `<\(`},
	{"sudo", `^\s*sudo\b`},
	{"env prefix", `^\s*env\s+\S+=`},
	{"variable prefix", `^\s*[A-Za-z_][A-Za-z0-9_]*=\S*\s`},
}

var exclusions = compileExclusions()

func compileExclusions() []exclusion {
	out := make([]exclusion, len(exclusionRules))
	for i, rule := range exclusionRules {
		re := regexp2.MustCompile(rule.expr, regexp2.None)
		re.MatchTimeout = exclusionTimeout
		out[i] = exclusion{name: rule.name, re: re}
	}
	return out
}

// Decision explains a gate result.
type Decision struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

// Gate reports whether a command's output should be compressed.
type Gate struct {
	patterns []*regexp.Regexp
	sources  []string
}

// NewGate compiles the hook patterns. A pattern that does not compile is a
// configuration error.
func NewGate(patterns []string) (*Gate, error) {
	g := &Gate{
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
		sources:  make([]string, 0, len(patterns)),
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
		g.patterns = append(g.patterns, re)
		g.sources = append(g.sources, p)
	}
	return g, nil
}

// Eligible reports whether command matches a hook pattern and no exclusion.
func (g *Gate) Eligible(command string) bool {
	return g.Check(command).Eligible
}

// Check is Eligible with the reason for the decision.
func (g *Gate) Check(command string) Decision {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return Decision{Reason: "empty command"}
	}

	for _, ex := range exclusions {
		matched, err := ex.re.MatchString(cmd)
		if err != nil {
			// A match that cannot be decided in time is treated as excluded.
			return Decision{Reason: "excluded: " + ex.name + " (match timeout)"}
		}
		if matched {
			return Decision{Reason: "excluded: " + ex.name}
		}
	}

	for i, re := range g.patterns {
		if re.MatchString(cmd) {
			return Decision{Eligible: true, Reason: "matched " + g.sources[i]}
		}
	}
	return Decision{Reason: "no matching pattern"}
}

// Patterns returns the hook patterns in the order they were given.
func (g *Gate) Patterns() []string {
	out := make([]string, len(g.sources))
	copy(out, g.sources)
	return out
}
