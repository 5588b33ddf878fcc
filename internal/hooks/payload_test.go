package hooks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseToolInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   Request
		wantOK bool
	}{
		{
			name:   "bash command",
			input:  `{"session_id":"abc","tool_name":"Bash","tool_input":{"command":"pip list"}}`,
			want:   Request{ToolName: "Bash", Command: "pip list", SessionID: "abc"},
			wantOK: true,
		},
		{
			name:   "extra fields ignored",
			input:  `{"tool_name":"Bash","tool_input":{"command":"rg x","description":"search"},"cwd":"/tmp"}`,
			want:   Request{ToolName: "Bash", Command: "rg x"},
			wantOK: true,
		},
		{name: "other tool", input: `{"tool_name":"Read","tool_input":{"file_path":"/tmp/a.png"}}`},
		{name: "missing command", input: `{"tool_name":"Bash","tool_input":{}}`},
		{name: "blank command", input: `{"tool_name":"Bash","tool_input":{"command":"  "}}`},
		{name: "malformed json", input: `{"tool_name":`},
		{name: "empty input", input: ``},
		{name: "wrong type", input: `{"tool_name":"Bash","tool_input":{"command":42}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseToolInput(strings.NewReader(tt.input))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
