package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/tokensaver/internal/ledger"
)

type statsOptions struct {
	session  string
	limit    int
	textfile string
}

// statsReport is the JSON document printed by the stats command.
type statsReport struct {
	Session       ledger.SessionStats     `json:"session"`
	Lifetime      ledger.LifetimeStats    `json:"lifetime"`
	TopProcessors []ledger.ProcessorStats `json:"top_processors"`
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	opts := &statsOptions{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print savings recorded in the ledger",
		Long: `Print session, lifetime and per-processor savings as JSON.

With --textfile, write the same figures in Prometheus text format for the
node_exporter textfile collector instead.

Examples:
  tokensaver stats
  tokensaver stats --session 3f2a9c1b4d5e --limit 10
  tokensaver stats --textfile /var/lib/node_exporter/tokensaver.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "session id (default: configured session)")
	cmd.Flags().IntVar(&opts.limit, "limit", ledger.DefaultTopProcessors, "number of processors to list")
	cmd.Flags().StringVar(&opts.textfile, "textfile", "", "write Prometheus metrics to this file")
	return cmd
}

func runStats(cmd *cobra.Command, root *rootOptions, opts *statsOptions) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, root.configPath)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if err := a.openLedger(ctx, a.sessionID()); err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	if opts.textfile != "" {
		return ledger.WriteTextfile(ctx, a.ledger, opts.textfile)
	}

	session := opts.session
	if session == "" {
		session = a.cfg.Session
	}

	var report statsReport
	if report.Session, err = a.ledger.SessionStats(ctx, session); err != nil {
		return err
	}
	if report.Lifetime, err = a.ledger.LifetimeStats(ctx); err != nil {
		return err
	}
	if report.TopProcessors, err = a.ledger.TopProcessors(ctx, opts.limit); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
