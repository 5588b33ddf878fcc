package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tokensaver/internal/compression"
	"github.com/fyrsmithlabs/tokensaver/internal/hooks"
	"github.com/fyrsmithlabs/tokensaver/internal/logging"
)

// gateResponse is written for hook payloads read from stdin.
type gateResponse struct {
	Command  string `json:"command"`
	Eligible bool   `json:"eligible"`
}

func newGateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gate [command]",
		Short: "Report whether a command's output should be compressed",
		Long: `Check a command against the processors' hook patterns and the exclusion
list.

With an argument, exits 0 when the command is eligible and 1 otherwise.
Without one, reads an agent PreToolUse payload from stdin and prints
{"command": ..., "eligible": ...}. Payloads that are not Bash commands are
ignored.

Examples:
  tokensaver gate "npm ls"
  echo '{"tool_name":"Bash","tool_input":{"command":"npm ls"}}' | tokensaver gate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGate(cmd, root, args)
		},
	}
}

// newBuiltinGate builds the gate over the compiled-in processors.
func newBuiltinGate() (*hooks.Gate, error) {
	registry, err := compression.NewRegistry(compression.Builtin(compression.DefaultConfig())...)
	if err != nil {
		return nil, err
	}
	return hooks.NewGate(registry.HookPatterns())
}

func runGate(cmd *cobra.Command, root *rootOptions, args []string) error {
	gate, err := newBuiltinGate()
	if err != nil {
		return fmt.Errorf("failed to build gate: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, root.configPath)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if len(args) == 1 {
		decision := gate.Check(args[0])
		a.logger.Debug(ctx, "gate decision",
			zap.String("command", args[0]),
			zap.Bool("eligible", decision.Eligible),
			zap.String("reason", decision.Reason),
		)
		if !decision.Eligible {
			return &exitError{code: 1}
		}
		return nil
	}

	req, ok := hooks.ParseToolInput(cmd.InOrStdin())
	if !ok {
		a.logger.Debug(ctx, "ignoring hook payload")
		return nil
	}
	if req.SessionID != "" {
		ctx = logging.WithSessionID(ctx, req.SessionID)
	}

	decision := gate.Check(req.Command)
	a.logger.Debug(ctx, "gate decision",
		zap.String("command", req.Command),
		zap.Bool("eligible", decision.Eligible),
		zap.String("reason", decision.Reason),
	)
	return json.NewEncoder(cmd.OutOrStdout()).Encode(gateResponse{
		Command:  req.Command,
		Eligible: decision.Eligible,
	})
}
