package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id> <from> <to>",
		Short: "Compare an object's attributes at two timestamps",
		Long: `Compare the attributes of an object as of two timestamps. An object
that did not exist or was deleted at a timestamp has no attributes there,
so every attribute on the other side is a difference.

Example:
  edb diff --db ./plant.db design/parts/1 1700000000000 1700000500000`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseTimestamp(args[1])
			if err != nil {
				return err
			}
			to, err := parseTimestamp(args[2])
			if err != nil {
				return err
			}
			return runDiff(cmd.Context(), rootOpts, args[0], from, to, cmd)
		},
	}
}

func runDiff(ctx context.Context, opts *RootOptions, id string, from, to int64, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openSession(orBackground(ctx), opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	return formatter.Success(DiffView(s.engine.Diff(id, from, to)))
}

func parseTimestamp(s string) (int64, error) {
	ts, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid timestamp %q: want milliseconds since the epoch", s))
	}
	return ts, nil
}
