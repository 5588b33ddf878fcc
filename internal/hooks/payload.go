package hooks

import (
	"encoding/json"
	"io"
	"strings"
)

// maxPayloadSize caps the hook payload read from stdin.
const maxPayloadSize = 1 << 20

// BashTool is the tool name whose commands are considered for compression.
const BashTool = "Bash"

// Request is the part of a PreToolUse payload the gate needs.
type Request struct {
	ToolName  string
	Command   string
	SessionID string
}

type toolInput struct {
	ToolName  string `json:"tool_name"`
	SessionID string `json:"session_id"`
	ToolInput struct {
		Command string `json:"command"`
	} `json:"tool_input"`
}

// ParseToolInput decodes an agent hook payload. It returns ok=false for
// anything that is not a Bash invocation with a command: malformed JSON,
// other tools and empty commands are all treated as nothing to do.
func ParseToolInput(r io.Reader) (Request, bool) {
	var in toolInput
	if err := json.NewDecoder(io.LimitReader(r, maxPayloadSize)).Decode(&in); err != nil {
		return Request{}, false
	}
	if in.ToolName != BashTool || strings.TrimSpace(in.ToolInput.Command) == "" {
		return Request{}, false
	}
	return Request{
		ToolName:  in.ToolName,
		Command:   in.ToolInput.Command,
		SessionID: in.SessionID,
	}, true
}
