package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/splitfi/tranche/internal/harness"
	"github.com/splitfi/tranche/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunSummary is what a successful run reports.
type RunSummary struct {
	Scenario string `json:"scenario"`
	Steps    int    `json:"steps"`
	Events   int    `json:"events"`
	Journal  string `json:"journal,omitempty"`
}

func (s RunSummary) String() string {
	out := fmt.Sprintf("%s: %d steps, %d events", s.Scenario, s.Steps, s.Events)
	if s.Journal != "" {
		out += ", journaled to " + s.Journal
	}
	return out
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against a fresh engine",
		Long: `Execute a YAML scenario: deploy a series over a mock adapter with a
frozen clock, apply the flow and check the assertions. With --db, the
event trace is also appended to a SQLite journal.

Example:
  tranche run ./scenario.yaml
  tranche run ./scenario.yaml --db ./journal.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	sc, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	out.VerboseLog("loaded scenario %s (%d steps)", sc.Name, len(sc.Flow))

	res, err := harness.Run(sc)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario failed", err)
	}

	if failures := harness.Verify(sc, res); len(failures) > 0 {
		entries := make([]ErrorEntry, 0, len(failures))
		for _, f := range failures {
			entries = append(entries, ErrorEntry{Message: f.Error()})
		}
		if err := out.Failures(entries); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertions failed", len(failures)))
	}

	summary := RunSummary{Scenario: sc.Name, Steps: len(sc.Flow), Events: len(res.Trace)}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		for _, ev := range res.Trace {
			if err := st.WriteEvent(ctx, ev); err != nil {
				return WrapExitError(ExitCommandError, "failed to journal event", err)
			}
		}
		summary.Journal = opts.Database
	}

	return out.Success(summary)
}
