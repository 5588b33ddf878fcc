package compression

import (
	"regexp"
	"strings"
)

var (
	networkCommandRe = regexp.MustCompile(`\b(curl|wget|http|https)\b`)
	curlRe           = regexp.MustCompile(`\bcurl\b`)
	wgetRe           = regexp.MustCompile(`\bwget\b`)
	curlVerboseRe    = regexp.MustCompile(`\s-[a-zA-Z]*v|--verbose`)

	curlTraceRe = regexp.MustCompile(`^\*\s*(SSL|TLS|ALPN|CAfile|CApath|Certificate|issuer|subject|` +
		`subjectAlt|Server certificate|Connected|Trying|` +
		`Connection(ed| #\d)| *expire| *start|` +
		`TCP_NODELAY|Mark bundle|upload completely|` +
		`Using Stream|old SSL|Closing|` +
		`successfully set certificate)\b`)
	curlMethodRe       = regexp.MustCompile(`^(GET|POST|PUT|DELETE|PATCH|HEAD|OPTIONS)\s+`)
	curlInfoErrorRe    = regexp.MustCompile(`(?i)(error|fail|could not|refused)`)
	curlProgressHeadRe = regexp.MustCompile(`%\s+Total\s+%\s+Received`)
	curlProgressSubRe  = regexp.MustCompile(`Dload\s+Upload`)
	curlProgressRowRe  = regexp.MustCompile(`^\s*\d+\s+\d+`)

	wgetBarRe     = regexp.MustCompile(`\d+%\s*\[=*>?\s*\]`)
	wgetDottedRe  = regexp.MustCompile(`^\s*\d+K\s+`)
	wgetStatusRe  = regexp.MustCompile(`(?i)saved|error|failed|refused|not found`)
	wgetHTTPRe    = regexp.MustCompile(`^\d{3}\s`)
	wgetChatterRe = regexp.MustCompile(`^(Resolving|Connecting to)\s+`)
)

// keptResponseHeaders are the response header prefixes verbose curl output
// keeps; everything else is transport boilerplate.
var keptResponseHeaders = []string{
	"content-type",
	"location",
	"www-authenticate",
	"set-cookie",
	"x-ratelimit",
	"retry-after",
	"authorization",
	"content-length",
	"transfer-encoding",
	"access-control-allow-origin",
	"x-request-id",
}

// Network compresses curl and wget output.
type Network struct{}

func (Network) Name() string  { return "network" }
func (Network) Priority() int { return 30 }

func (Network) HookPatterns() []string {
	return []string{`^(curl|wget)\b`}
}

func (Network) CanHandle(command string) bool {
	return networkCommandRe.MatchString(command)
}

func (n Network) Process(command, output string) (string, error) {
	if isBlank(output) {
		return output, nil
	}
	lines, trailing := splitLines(output)

	switch {
	case curlRe.MatchString(command):
		if curlVerboseRe.MatchString(command) {
			return joinLines(filterVerboseCurl(lines), trailing), nil
		}
		return joinLines(stripCurlProgress(lines), trailing), nil
	case wgetRe.MatchString(command):
		return joinLines(filterWget(lines), trailing), nil
	}
	return output, nil
}

func isCurlProgressRow(trimmed string) bool {
	return curlProgressRowRe.MatchString(trimmed) && timerRe.MatchString(trimmed)
}

func filterVerboseCurl(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if curlTraceRe.MatchString(trimmed) {
			continue
		}

		// Request headers: only the request line is useful.
		if strings.HasPrefix(trimmed, "> ") {
			if curlMethodRe.MatchString(strings.TrimSpace(trimmed[2:])) {
				out = append(out, trimmed)
			}
			continue
		}

		if strings.HasPrefix(trimmed, "< ") {
			header := strings.TrimSpace(trimmed[2:])
			if strings.HasPrefix(header, "HTTP/") || isKeptResponseHeader(header) {
				out = append(out, trimmed)
			}
			continue
		}

		if curlProgressHeadRe.MatchString(trimmed) || curlProgressSubRe.MatchString(trimmed) || isCurlProgressRow(trimmed) {
			continue
		}

		if strings.HasPrefix(trimmed, "* ") && !curlInfoErrorRe.MatchString(trimmed) {
			continue
		}

		out = append(out, line)
	}
	return out
}

func isKeptResponseHeader(header string) bool {
	name, _, found := strings.Cut(header, ":")
	if !found {
		return false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range keptResponseHeaders {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// stripCurlProgress removes the progress meter curl writes to stderr when
// not running silently.
func stripCurlProgress(lines []string) []string {
	out := make([]string, 0, len(lines))
	inTable := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if curlProgressHeadRe.MatchString(trimmed) {
			inTable = true
			continue
		}
		if inTable && curlProgressSubRe.MatchString(trimmed) {
			continue
		}
		if isCurlProgressRow(trimmed) {
			inTable = false
			continue
		}
		inTable = false
		out = append(out, line)
	}
	return out
}

func filterWget(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case wgetChatterRe.MatchString(trimmed):
			continue
		case wgetBarRe.MatchString(trimmed):
			continue
		case wgetDottedRe.MatchString(trimmed) && strings.Contains(trimmed, "..."):
			continue
		case strings.HasPrefix(trimmed, "Length:"),
			strings.HasPrefix(trimmed, "Saving to:"),
			strings.HasPrefix(trimmed, "HTTP request sent"),
			strings.HasPrefix(trimmed, "Location:"),
			wgetStatusRe.MatchString(trimmed),
			wgetHTTPRe.MatchString(trimmed):
			out = append(out, trimmed)
		default:
			out = append(out, line)
		}
	}
	return out
}
