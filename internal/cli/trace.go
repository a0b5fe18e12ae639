package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitfi/tranche/internal/store"
	"github.com/splitfi/tranche/internal/tranche"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [series-id]",
		Short: "Dump a series event trace from a journal",
		Long: `Read a series trace back out of a SQLite journal in deterministic
order. Without a series ID, lists the series present in the journal.

Example:
  tranche trace --db ./journal.db
  tranche trace --db ./journal.db issue-collect --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			seriesID := ""
			if len(args) > 0 {
				seriesID = args[0]
			}
			return runTrace(opts, seriesID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, seriesID string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if seriesID == "" {
		ids, err := st.Series(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list series", err)
		}
		if opts.Format == "json" {
			return out.Success(ids)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	}

	trace, err := st.ReadTrace(ctx, seriesID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	if len(trace) == 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("no events for series %q", seriesID))
	}

	if opts.Format == "json" {
		return out.Success(trace)
	}
	for _, ev := range trace {
		fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
	}
	return nil
}

func formatEvent(ev tranche.Event) string {
	amounts, _ := json.Marshal(ev.Amounts)
	return fmt.Sprintf("%6d %-20s %-24s %s -> %s %s",
		ev.Seq, ev.Kind, ev.Caller, ev.From, ev.To, amounts)
}
