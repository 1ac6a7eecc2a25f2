package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/edb/internal/engine"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	At int64
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show the current or past state of an object",
		Long: `Show the latest entry of an object, or with --at the entry that was
current at that timestamp (milliseconds since the epoch).

A deleted object is shown as its tombstone.

Examples:
  edb get --db ./plant.db design/parts/1
  edb get --db ./plant.db design/parts/1 --at 1700000000000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "timestamp to read at (default: now)")

	return cmd
}

func runGet(ctx context.Context, opts *GetOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(orBackground(ctx), opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer s.Close()

	entry, ok := s.engine.GetObject(id)
	if cmd.Flags().Changed("at") {
		entry, ok = s.engine.GetObjectAt(id, opts.At)
	}
	if !ok {
		return formatter.Fail(&engine.NotFoundError{ID: id})
	}
	return formatter.Success(ObjectView(entry))
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
