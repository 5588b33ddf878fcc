// Package main implements the tokensaver CLI: the hook-side entry points
// that gate, compress and report on agent command output.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// exitError carries a process exit code without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// rootOptions are flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "tokensaver",
		Short: "Compress command output before it reaches an agent's context",
		Long: `tokensaver shrinks the output of shell commands run by coding agents.

Commands are classified by a gate, compressed by a command-specific or
generic processor, and every accepted compression is recorded in a local
savings ledger.

Examples:
  # Decide whether a command should be wrapped
  tokensaver gate "pip list"

  # Compress captured output
  pip list 2>&1 | tokensaver compress --command "pip list"

  # Show savings
  tokensaver stats`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "",
		"config file (default ~/.config/tokensaver/config.yaml)")

	cmd.AddCommand(
		newCompressCmd(opts),
		newGateCmd(opts),
		newPatternsCmd(),
		newStatsCmd(opts),
	)
	return cmd
}
