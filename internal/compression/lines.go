package compression

import (
	"strings"
	"unicode"
)

// splitLines splits text on \r\n, \r and \n. The second return value reports
// whether the text ended with a line terminator, which is not returned as an
// extra empty line.
func splitLines(text string) ([]string, bool) {
	if text == "" {
		return nil, false
	}

	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}

	if start < len(text) {
		lines = append(lines, text[start:])
		return lines, false
	}
	return lines, true
}

// joinLines is the inverse of splitLines.
func joinLines(lines []string, trailingNewline bool) string {
	out := strings.Join(lines, "\n")
	if trailingNewline && len(lines) > 0 {
		out += "\n"
	}
	return out
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func trimRight(line string) string {
	return strings.TrimRightFunc(line, unicode.IsSpace)
}
