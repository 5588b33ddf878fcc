package compression

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// listKeepAll is the item count up to which a listing is left alone.
	listKeepAll = 20
	// listPreview is the number of items shown once a listing is summarised.
	listPreview = 15

	npmIssueLimit    = 10
	npmTopLevelLimit = 20
)

var (
	packageListCommandRe = regexp.MustCompile(`\b(pip3?\s+(list|freeze)|npm\s+(ls|list)|conda\s+list|` +
		`yarn\s+list|pnpm\s+list|gem\s+list|brew\s+list)\b`)

	npmLsRe     = regexp.MustCompile(`\bnpm\s+(ls|list)\b`)
	pipFreezeRe = regexp.MustCompile(`\bpip3?\s+freeze\b`)
	pipListRe   = regexp.MustCompile(`\bpip3?\s+list\b`)
	condaListRe = regexp.MustCompile(`\bconda\s+list\b`)
	yarnPnpmRe  = regexp.MustCompile(`\b(yarn|pnpm)\s+list\b`)
	gemListRe   = regexp.MustCompile(`\bgem\s+list\b`)
	brewListRe  = regexp.MustCompile(`\bbrew\s+list\b`)
	pipSepRe    = regexp.MustCompile(`^-+\s+-+`)
	pipHeaderRe = regexp.MustCompile(`^Package\s+Version`)
	npmIssueRe  = regexp.MustCompile(`(?i)(UNMET|invalid|missing|ERR!|WARN)`)
	npmTopRe    = regexp.MustCompile(`^([├└]─+|[+` + "`" + `]-)\s+`)
	npmNestedRe = regexp.MustCompile(`^([│ ]*[├└]|[| ]*[+` + "`" + `])`)
)

// PackageList summarises installed-package listings from pip, npm, conda,
// gem and brew.
type PackageList struct{}

func (PackageList) Name() string  { return "package_list" }
func (PackageList) Priority() int { return 15 }

func (PackageList) HookPatterns() []string {
	return []string{`^(pip3?\s+(list|freeze)|npm\s+(ls|list)|conda\s+list|gem\s+list|brew\s+list)\b`}
}

func (PackageList) CanHandle(command string) bool {
	return packageListCommandRe.MatchString(command)
}

func (p PackageList) Process(command, output string) (string, error) {
	if isBlank(output) {
		return output, nil
	}
	lines, trailing := splitLines(output)

	switch {
	case npmLsRe.MatchString(command), yarnPnpmRe.MatchString(command):
		return summariseDependencyTree(output, lines, trailing), nil
	case pipFreezeRe.MatchString(command):
		return summariseList(output, nonBlankTrimmed(lines), "packages", trailing), nil
	case pipListRe.MatchString(command):
		return summariseList(output, pipListItems(lines), "packages installed", trailing), nil
	case condaListRe.MatchString(command):
		return summariseList(output, condaListItems(lines), "packages installed", trailing), nil
	case gemListRe.MatchString(command):
		return summariseList(output, nonBlankTrimmed(lines), "gems", trailing), nil
	case brewListRe.MatchString(command):
		return summariseList(output, nonBlankTrimmed(lines), "formulae", trailing), nil
	}
	return output, nil
}

// summariseList replaces a long listing with a count and a short preview.
func summariseList(output string, items []string, noun string, trailing bool) string {
	if len(items) <= listKeepAll {
		return output
	}
	out := make([]string, 0, listPreview+2)
	out = append(out, fmt.Sprintf("%d %s:", len(items), noun))
	for _, item := range items[:listPreview] {
		out = append(out, "  "+item)
	}
	out = append(out, fmt.Sprintf("  ... (%d more)", len(items)-listPreview))
	return joinLines(out, trailing)
}

func nonBlankTrimmed(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func pipListItems(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || pipSepRe.MatchString(trimmed) || pipHeaderRe.MatchString(trimmed) {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func condaListItems(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "#") || isBlank(line) {
			continue
		}
		out = append(out, strings.TrimSpace(line))
	}
	return out
}

// summariseDependencyTree keeps top-level entries and problem lines from an
// npm-style dependency tree and counts the rest.
func summariseDependencyTree(output string, lines []string, trailing bool) string {
	if len(lines) <= listKeepAll {
		return output
	}

	var roots, topLevel, issues []string
	total := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case npmIssueRe.MatchString(trimmed):
			issues = append(issues, trimmed)
		case npmTopRe.MatchString(line):
			topLevel = append(topLevel, trimmed)
			total++
		case npmNestedRe.MatchString(line):
			total++
		case line != "" && !strings.HasPrefix(line, " "):
			roots = append(roots, trimmed)
		}
	}
	topLevel = append(roots, topLevel...)

	out := []string{fmt.Sprintf("%d total dependencies:", total)}
	if len(issues) > 0 {
		out = append(out, fmt.Sprintf("Issues (%d):", len(issues)))
		out = appendCapped(out, issues, npmIssueLimit)
	}
	out = append(out, fmt.Sprintf("Top-level (%d):", len(topLevel)))
	out = appendCapped(out, topLevel, npmTopLevelLimit)
	return joinLines(out, trailing)
}

// appendCapped appends up to limit indented items and an elision line for
// the remainder.
func appendCapped(out, items []string, limit int) []string {
	for i, item := range items {
		if i == limit {
			return append(out, fmt.Sprintf("  ... (%d more)", len(items)-limit))
		}
		out = append(out, "  "+item)
	}
	return out
}
