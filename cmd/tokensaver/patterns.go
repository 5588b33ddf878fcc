package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tokensaver/internal/compression"
)

func newPatternsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "Print the hook patterns of every processor",
		Long: `Print the regular expressions that make a command eligible for
compression, one per line, in processor priority order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := compression.NewRegistry(compression.Builtin(compression.DefaultConfig())...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range registry.HookPatterns() {
				if _, err := fmt.Fprintln(out, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
