package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show every version of an object",
		Long: `Show every entry ever written for an object, oldest first, including
tombstones. An id deleted and inserted again keeps one history.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runHistory(ctx context.Context, opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openSession(orBackground(ctx), opts, true)
	if err != nil {
		return err
	}
	defer s.Close()

	return formatter.Success(HistoryView(s.engine.GetHistory(id)))
}

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	From int64
	To   int64
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log <id>",
		Short: "List the commits that touched an object",
		Long: `List the commits that inserted, updated or deleted an object with
timestamps in [--from, --to], both inclusive.

Examples:
  edb log --db ./plant.db design/parts/1
  edb log --db ./plant.db design/parts/1 --from 1700000000000 --to 1700000500000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.From, "from", 0, "earliest commit timestamp")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "latest commit timestamp (default: now)")

	return cmd
}

func runLog(ctx context.Context, opts *LogOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(orBackground(ctx), opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer s.Close()

	to := opts.To
	if !cmd.Flags().Changed("to") {
		to = s.engine.LastTimestamp()
	}
	if opts.From > to {
		return NewExitError(ExitCommandError, fmt.Sprintf("--from %d is after --to %d", opts.From, to))
	}
	return formatter.Success(CommitsView(s.engine.GetLog(id, opts.From, to)))
}
