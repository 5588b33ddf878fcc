package compression

import (
	"regexp"
	"strings"
)

const terraformMinLines = 30

var (
	terraformCommandRe = regexp.MustCompile(`\b(terraform|tofu)\s+(plan|apply|destroy)\b`)

	tfChatterRe    = regexp.MustCompile(`^(Initializing|Acquiring|Installing|Reusing|Successfully configured)\b|^-\s+Installed\s+`)
	tfHeaderRe     = regexp.MustCompile(`^#\s+\S+.*\b(will be created|will be destroyed|will be updated in-place|must be replaced)`)
	tfResourceRe   = regexp.MustCompile(`^([~+-]|-/\+|\+/-)\s+(resource|data)\s+`)
	tfChangedRe    = regexp.MustCompile(`^([~+-]|-/\+|\+/-)\s`)
	tfSummaryRe    = regexp.MustCompile(`^(Plan:|Apply complete|Destroy complete|No changes)`)
	tfOutputsRe    = regexp.MustCompile(`^Changes to Outputs:`)
	tfOutputDiffRe = regexp.MustCompile(`^[~+-]\s+\w+\s*=`)
	tfProblemRe    = regexp.MustCompile(`\b(Error|Warning|error|warning)\b`)
	tfNoteRe       = regexp.MustCompile(`^Note:`)
)

type tfAction int

const (
	tfCreate tfAction = iota + 1
	tfDestroy
	tfUpdate
)

// Terraform condenses terraform and OpenTofu plan/apply output to the
// resources that change and how.
type Terraform struct{}

func (Terraform) Name() string  { return "terraform" }
func (Terraform) Priority() int { return 33 }

func (Terraform) HookPatterns() []string {
	return []string{`^(terraform|tofu)\s+(plan|apply|destroy)\b`}
}

func (Terraform) CanHandle(command string) bool {
	return terraformCommandRe.MatchString(command)
}

// tfBlock tracks one resource change block.
type tfBlock struct {
	action tfAction
	depth  int
	opened bool
}

func (t Terraform) Process(_ string, output string) (string, error) {
	if isBlank(output) {
		return output, nil
	}
	lines, trailing := splitLines(output)
	if len(lines) <= terraformMinLines {
		return output, nil
	}

	var (
		out        []string
		block      *tfBlock
		recognised bool
	)
	keep := func(line string) { out = append(out, line) }

	for _, line := range lines {
		trimmed := strings.TrimSpace(StripANSI(line))

		if tfChatterRe.MatchString(trimmed) {
			continue
		}

		if m := tfHeaderRe.FindStringSubmatch(trimmed); m != nil {
			recognised = true
			block = &tfBlock{action: actionFor(m[1])}
			keep(line)
			continue
		}

		// A header not followed by a resource body does not open a block.
		if block != nil && !block.opened && trimmed != "" && !strings.HasSuffix(trimmed, "{") {
			block = nil
		}

		if block != nil {
			if block.consume(trimmed) {
				keep(line)
			}
			if block.closed() {
				block = nil
			}
			continue
		}

		switch {
		case tfSummaryRe.MatchString(trimmed), tfOutputsRe.MatchString(trimmed):
			recognised = true
			keep(line)
		case tfOutputDiffRe.MatchString(trimmed),
			tfProblemRe.MatchString(trimmed),
			tfNoteRe.MatchString(trimmed):
			keep(line)
		case trimmed == "" && len(out) > 0 && !isBlank(out[len(out)-1]):
			keep(line)
		}
	}

	if !recognised || len(out) == 0 {
		return output, nil
	}
	return joinLines(out, trailing), nil
}

func actionFor(phrase string) tfAction {
	switch phrase {
	case "will be created":
		return tfCreate
	case "will be destroyed":
		return tfDestroy
	default:
		return tfUpdate
	}
}

// consume advances brace depth over one block line and reports whether the
// line is kept.
func (b *tfBlock) consume(trimmed string) bool {
	resourceLine := !b.opened && tfResourceRe.MatchString(trimmed)
	closing := strings.HasPrefix(trimmed, "}")

	if closing && b.depth > 0 {
		b.depth--
	}
	if strings.HasSuffix(trimmed, "{") {
		b.depth++
		b.opened = true
	}

	switch b.action {
	case tfCreate:
		return true
	case tfDestroy:
		return false
	}

	switch {
	case resourceLine:
		return true
	case b.closed() && closing:
		return true
	case strings.Contains(trimmed, "->"),
		tfChangedRe.MatchString(trimmed),
		strings.Contains(trimmed, "(known after apply)"),
		strings.Contains(trimmed, "forces replacement"):
		return true
	}
	return false
}

func (b *tfBlock) closed() bool {
	return b.opened && b.depth == 0
}
