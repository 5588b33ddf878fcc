package compression

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// GenericName is the ledger name of the fallback processor.
const GenericName = "generic"

var (
	// CSI sequences (colors, cursor movement) and OSC sequences terminated by
	// BEL or ST.
	ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

	numericRe     = regexp.MustCompile(`\d+(\.\d+)?`)
	progressBarRe = regexp.MustCompile(`[━█▓░▒■□●○#=\->]{5,}`)
	percentRe     = regexp.MustCompile(`\d+(\.\d+)?%`)
	transferRe    = regexp.MustCompile(`\d+(\.\d+)?\s*(KB|MB|GB|B|kB|MiB|GiB|k|M|G)/s`)
	etaRe         = regexp.MustCompile(`(ETA|eta)\s+\d+`)
	timerRe       = regexp.MustCompile(`--:--:--|(\d+:){2}\d+`)
)

var spinnerFrames = map[string]struct{}{
	"⠋": {}, "⠙": {}, "⠹": {}, "⠸": {}, "⠼": {}, "⠴": {}, "⠦": {}, "⠧": {}, "⠇": {}, "⠏": {},
	"⣾": {}, "⣽": {}, "⣻": {}, "⢿": {}, "⡿": {}, "⣟": {}, "⣯": {}, "⣷": {},
}

const (
	// similarRunMin is the shortest run of numerically similar lines that is
	// folded to first/marker/last.
	similarRunMin = 5
	// similarMinLength is the trimmed length a line must exceed to be folded.
	similarMinLength = 10
)

// Generic is the fallback processor. It matches every command and applies
// line-oriented heuristics that work on any tool output.
type Generic struct {
	TruncateThreshold int
	KeepHead          int
	KeepTail          int
}

// NewGeneric creates the fallback processor from the truncation settings.
func NewGeneric(cfg Config) *Generic {
	return &Generic{
		TruncateThreshold: cfg.TruncateThreshold,
		KeepHead:          cfg.KeepHead,
		KeepTail:          cfg.KeepTail,
	}
}

func (g *Generic) Name() string           { return GenericName }
func (g *Generic) Priority() int          { return FallbackPriority }
func (g *Generic) HookPatterns() []string { return nil }

// CanHandle always returns true.
func (g *Generic) CanHandle(string) bool { return true }

// Process runs the full heuristic pipeline.
func (g *Generic) Process(_ string, output string) (string, error) {
	lines, trailing := splitLines(output)
	lines = stripANSILines(lines)
	lines = dropProgressLines(lines)
	lines = collapseBlankLines(lines)
	lines = collapseRepeatedLines(lines)
	lines = collapseSimilarLines(lines)
	lines = trimRightLines(lines)
	lines = g.truncateMiddle(lines)
	return joinLines(lines, trailing), nil
}

// Clean is the light pass applied after every processor. It strips escape
// sequences, collapses blank line runs and trims trailing whitespace.
// Clean is idempotent.
func Clean(text string) string {
	lines, trailing := splitLines(text)
	lines = stripANSILines(lines)
	lines = collapseBlankLines(lines)
	lines = trimRightLines(lines)
	return joinLines(lines, trailing)
}

// StripANSI removes terminal escape sequences. Removal is repeated so that
// sequences assembled from the remains of removed ones are also stripped.
func StripANSI(s string) string {
	for {
		next := ansiRe.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

func stripANSILines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = StripANSI(line)
	}
	return out
}

func trimRightLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = trimRight(line)
	}
	return out
}

// isProgressLine reports whether a line is a bare progress bar or spinner.
func isProgressLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if _, ok := spinnerFrames[trimmed]; ok {
		return true
	}
	total := utf8.RuneCountInString(trimmed)
	for _, bar := range progressBarRe.FindAllString(trimmed, -1) {
		if float64(utf8.RuneCountInString(bar)) > float64(total)*0.5 {
			return true
		}
	}
	return false
}

func dropProgressLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if isProgressLine(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

func collapseBlankLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		blank := isBlank(line)
		if blank && prevBlank {
			continue
		}
		out = append(out, line)
		prevBlank = blank
	}
	return out
}

// collapseRepeatedLines folds runs of identical non-blank lines into one
// line suffixed with the repeat count.
func collapseRepeatedLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	current, count := lines[0], 1
	flush := func() {
		if count > 1 {
			out = append(out, fmt.Sprintf("%s (x%d)", current, count))
			return
		}
		out = append(out, current)
	}
	for _, line := range lines[1:] {
		if line == current && !isBlank(current) {
			count++
			continue
		}
		flush()
		current, count = line, 1
	}
	flush()
	return out
}

// collapseSimilarLines folds runs of lines that differ only in their numbers,
// such as download progress, keeping the first and last line of the run.
func collapseSimilarLines(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	head := lines[0]
	headNorm := normalizeNumbers(head)
	group := []string{head}

	flush := func() {
		if len(group) >= similarRunMin {
			out = append(out,
				group[0],
				fmt.Sprintf("  ... (%d similar lines)", len(group)-2),
				group[len(group)-1],
			)
			return
		}
		out = append(out, group...)
	}

	for _, line := range lines[1:] {
		norm := normalizeNumbers(line)
		if norm == headNorm && isFoldable(head) {
			group = append(group, line)
			continue
		}
		flush()
		head, headNorm = line, norm
		group = []string{line}
	}
	flush()
	return out
}

func isFoldable(line string) bool {
	trimmed := strings.TrimSpace(line)
	return utf8.RuneCountInString(trimmed) > similarMinLength && isNumericHeavy(trimmed)
}

func normalizeNumbers(line string) string {
	return numericRe.ReplaceAllString(strings.TrimSpace(line), "N")
}

// isNumericHeavy reports whether the numbers in a line are progress noise
// rather than data.
func isNumericHeavy(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	runes, digits := 0, 0
	for _, r := range trimmed {
		runes++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if float64(digits)/float64(runes) >= 0.25 {
		return true
	}
	if percentRe.MatchString(trimmed) || transferRe.MatchString(trimmed) || etaRe.MatchString(trimmed) {
		return true
	}
	if timerRe.MatchString(trimmed) && digits >= 5 {
		return true
	}

	nonSpace := strings.ReplaceAll(trimmed, " ", "")
	if nonSpace == "" {
		return false
	}
	return float64(digits)/float64(utf8.RuneCountInString(nonSpace)) >= 0.40
}

// truncateMiddle keeps the head and tail of long output.
func (g *Generic) truncateMiddle(lines []string) []string {
	total := len(lines)
	if g.TruncateThreshold <= 0 || total <= g.TruncateThreshold {
		return lines
	}
	if g.KeepHead < 0 || g.KeepTail < 0 || total <= g.KeepHead+g.KeepTail {
		return lines
	}
	removed := total - g.KeepHead - g.KeepTail
	out := make([]string, 0, g.KeepHead+g.KeepTail+1)
	out = append(out, lines[:g.KeepHead]...)
	out = append(out, fmt.Sprintf("... (%d lines truncated, %d total) ...", removed, total))
	out = append(out, lines[total-g.KeepTail:]...)
	return out
}
