package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tokensaver/internal/logging"
)

type compressOptions struct {
	command  string
	platform string
}

func newCompressCmd(root *rootOptions) *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "compress",
		Short: "Compress command output read from stdin",
		Long: `Read the captured output of a command from stdin and write a compressed
version to stdout.

The original output is written unchanged whenever compression is not
worthwhile or anything goes wrong.

Examples:
  terraform plan 2>&1 | tokensaver compress --command "terraform plan"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCompress(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.command, "command", "", "command that produced the output")
	cmd.Flags().StringVar(&opts.platform, "platform", "", "platform tag recorded in the ledger")
	_ = cmd.MarkFlagRequired("command")
	return cmd
}

func runCompress(cmd *cobra.Command, root *rootOptions, opts *compressOptions) error {
	stdout := cmd.OutOrStdout()
	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		_, _ = stdout.Write(input)
		return fmt.Errorf("failed to read output: %w", err)
	}
	original := string(input)

	ctx := cmd.Context()
	a, err := newApp(ctx, root.configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "tokensaver: %v\n", err)
		_, werr := io.WriteString(stdout, original)
		return werr
	}
	defer a.Close(ctx)

	sessionID := a.sessionID()
	ctx = logging.WithSessionID(ctx, sessionID)

	if err := a.openLedger(ctx, sessionID); err != nil {
		a.logger.Warn(ctx, "ledger unavailable, savings will not be recorded", zap.Error(err))
	}

	svc, err := a.newService(opts.platform)
	if err != nil {
		a.logger.Error(ctx, "failed to build compression pipeline", zap.Error(err))
		_, werr := io.WriteString(stdout, original)
		return werr
	}

	result := svc.Compress(ctx, opts.command, original)
	_, err = io.WriteString(stdout, result.Output)
	return err
}
