package secrets

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultReplacement is substituted for every masked span.
const DefaultReplacement = "[REDACTED]"

type compiledRule struct {
	id      string
	pattern *regexp.Regexp
}

// Scrubber masks credential patterns in text. It is safe for concurrent
// use.
type Scrubber struct {
	rules       []compiledRule
	allow       []*regexp.Regexp
	replacement string
}

// Option configures a Scrubber.
type Option func(*Scrubber)

// WithReplacement overrides DefaultReplacement.
func WithReplacement(s string) Option {
	return func(sc *Scrubber) {
		if s != "" {
			sc.replacement = s
		}
	}
}

// WithAllowList skips matches that any of the given patterns match.
// Invalid patterns are reported by New.
func WithAllowList(patterns ...string) Option {
	return func(sc *Scrubber) {
		for _, p := range patterns {
			sc.allow = append(sc.allow, regexp.MustCompile(p))
		}
	}
}

// New compiles rules into a Scrubber.
func New(rules []Rule, opts ...Option) (sc *Scrubber, err error) {
	sc = &Scrubber{replacement: DefaultReplacement}
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", r.ID)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		sc.rules = append(sc.rules, compiledRule{id: r.ID, pattern: re})
	}

	defer func() {
		if r := recover(); r != nil {
			sc, err = nil, fmt.Errorf("invalid allow list pattern: %v", r)
		}
	}()
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Default returns a Scrubber over DefaultRules.
func Default() *Scrubber {
	sc, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return sc
}

// Result describes one Scrub call. Matched values are never retained.
type Result struct {
	Text  string
	Rules []string
}

// Found reports whether anything was masked.
func (r Result) Found() bool { return len(r.Rules) > 0 }

type span struct{ start, end int }

// Scrub masks every rule match in text.
func (sc *Scrubber) Scrub(text string) Result {
	var (
		spans []span
		hit   []string
	)
	for _, rule := range sc.rules {
		matched := false
		for _, m := range rule.pattern.FindAllStringIndex(text, -1) {
			if sc.allowed(text[m[0]:m[1]]) {
				continue
			}
			spans = append(spans, span{m[0], m[1]})
			matched = true
		}
		if matched {
			hit = append(hit, rule.id)
		}
	}
	if len(spans) == 0 {
		return Result{Text: text}
	}

	spans = merge(spans)
	out := make([]byte, 0, len(text))
	last := 0
	for _, s := range spans {
		out = append(out, text[last:s.start]...)
		out = append(out, sc.replacement...)
		last = s.end
	}
	out = append(out, text[last:]...)
	return Result{Text: string(out), Rules: hit}
}

// Redact returns text with every match masked.
func (sc *Scrubber) Redact(text string) string {
	return sc.Scrub(text).Text
}

func (sc *Scrubber) allowed(match string) bool {
	for _, re := range sc.allow {
		if re.MatchString(match) {
			return true
		}
	}
	return false
}

// merge sorts spans and joins those that overlap or touch.
func merge(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
