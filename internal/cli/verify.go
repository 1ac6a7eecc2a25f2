package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Replay the commit log and check its consistency",
		Long: `Re-read the commit log, rebuild every index from it and check that
the result agrees with the engine: versions are contiguous from 1,
commit timestamps strictly increase, every entry belongs to a commit
that touches it, and the rebuilt objects match.

For the SQLite backend the database is also scanned for parent chain
breaks and entries whose timestamp differs from their commit's.

Exit codes:
  0 - The log is consistent
  1 - Problems were found
  2 - Command error (database not found, etc.)

Examples:
  edb verify --db ./plant.db
  edb verify --db ./plant-badger --backend badger --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runVerify(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	ctx = orBackground(ctx)
	formatter := newFormatter(opts, cmd)

	s, err := openSession(ctx, opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.engine.Verify(ctx)
	if err != nil {
		return formatter.Fail(err)
	}
	result := VerifyResult{
		Commits:  report.Commits,
		Objects:  report.Objects,
		Problems: report.Problems,
	}
	if result.Problems == nil {
		result.Problems = []string{}
	}

	if s.store != nil {
		formatter.VerboseLog("Checking SQLite integrity of %s", s.store.Path())
		integrity, err := s.store.CheckIntegrity(ctx)
		if err != nil {
			return formatter.Fail(err)
		}
		result.Integrity = &integrity
	}

	if !result.OK() {
		if formatter.Format == "json" {
			if err := formatter.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeVerify, Message: "log is inconsistent"},
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(formatter.Writer, result)
		}
		return &ExitError{Code: ExitFailure, Message: "log is inconsistent", Reported: true}
	}
	return formatter.Success(result)
}
