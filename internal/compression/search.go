package compression

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	searchMinLines       = 20
	searchSamplesPerFile = 3
	searchMaxFiles       = 20
	searchPlainKeep      = 25
	searchPlainKeepAll   = 30
)

var (
	searchCommandRe = regexp.MustCompile(`\b(grep|rg|ag)\b`)
	binaryMatchRe   = regexp.MustCompile(`^Binary file .* matches`)
	fileMatchRe     = regexp.MustCompile(`^(.+?):(\d+:)?(.*)$`)
)

// Search groups grep, rg and ag results by file.
type Search struct{}

func (Search) Name() string  { return "search" }
func (Search) Priority() int { return 35 }

func (Search) HookPatterns() []string {
	return []string{`^(grep|rg|ag)\b`}
}

func (Search) CanHandle(command string) bool {
	return searchCommandRe.MatchString(command)
}

type fileMatches struct {
	path  string
	lines []string
}

func (s Search) Process(_ string, output string) (string, error) {
	if isBlank(output) {
		return output, nil
	}
	lines, trailing := splitLines(output)
	if len(lines) < searchMinLines {
		return output, nil
	}

	var (
		files  []*fileMatches
		byPath = make(map[string]*fileMatches)
		plain  []string
	)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || binaryMatchRe.MatchString(trimmed) {
			continue
		}
		path, ok := matchPath(trimmed)
		if !ok {
			plain = append(plain, trimmed)
			continue
		}
		fm, seen := byPath[path]
		if !seen {
			fm = &fileMatches{path: path}
			byPath[path] = fm
			files = append(files, fm)
		}
		fm.lines = append(fm.lines, trimmed)
	}

	if len(files) == 0 {
		if len(plain) <= searchPlainKeepAll {
			return output, nil
		}
		out := append([]string{}, plain[:searchPlainKeep]...)
		out = append(out, fmt.Sprintf("... (%d more matches)", len(plain)-searchPlainKeep))
		return joinLines(out, trailing), nil
	}

	total := len(plain)
	for _, fm := range files {
		total += len(fm.lines)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return len(files[i].lines) > len(files[j].lines)
	})

	out := []string{fmt.Sprintf("%d matches across %d files:", total, len(files))}
	for i, fm := range files {
		if i == searchMaxFiles {
			out = append(out, fmt.Sprintf("... (%d more files)", len(files)-searchMaxFiles))
			break
		}
		out = append(out, fm.summary()...)
	}

	if len(plain) > 0 {
		out = appendPlainMatches(out, plain)
	}
	return joinLines(out, trailing), nil
}

// summary renders one file's matches in at most four lines.
func (fm *fileMatches) summary() []string {
	count := len(fm.lines)
	if count <= searchSamplesPerFile {
		return fm.lines
	}
	out := make([]string, 0, searchSamplesPerFile+1)
	out = append(out, fmt.Sprintf("%s: (%d matches, %d more not shown)", fm.path, count, count-searchSamplesPerFile))
	for _, line := range fm.lines[:searchSamplesPerFile] {
		out = append(out, "  "+strings.TrimPrefix(line, fm.path+":"))
	}
	return out
}

func appendPlainMatches(out, plain []string) []string {
	for i, line := range plain {
		if i == searchPlainKeep {
			return append(out, fmt.Sprintf("... (%d more matches)", len(plain)-searchPlainKeep))
		}
		out = append(out, line)
	}
	return out
}

// matchPath extracts the file from a "path:line:content" or "path:content"
// result. Paths must contain a separator or an extension.
func matchPath(line string) (string, bool) {
	m := fileMatchRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	path := m[1]
	if !strings.ContainsAny(path, "/.") {
		return "", false
	}
	return path, true
}
