package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitfi/tranche/internal/seriesspec"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <series.yaml>",
		Short: "Validate a series definition file",
		Long: `Validate a YAML series definition against the embedded schema.

All violations are reported, not just the first. Exit code 1 means the
file is invalid; 2 means it could not be read.

Example:
  tranche validate ./series.yaml
  tranche validate ./series.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	series, errs := seriesspec.Load(path)
	if len(errs) > 0 {
		entries := make([]ErrorEntry, 0, len(errs))
		unreadable := false
		for _, e := range errs {
			if e.Code == seriesspec.ErrDocumentUnreadable {
				unreadable = true
			}
			entries = append(entries, ErrorEntry{Code: e.Code, Field: e.Field, Message: e.Message})
		}
		if err := out.Failures(entries); err != nil {
			return err
		}
		if unreadable {
			return NewExitError(ExitCommandError, "definition file unreadable")
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation errors", len(errs)))
	}

	out.VerboseLog("validated %s", path)
	return out.Success(fmt.Sprintf("%s: %d series valid", path, len(series)))
}
