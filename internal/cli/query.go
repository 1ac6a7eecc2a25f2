package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	At  int64
	SQL bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [expression]",
		Short: "Find live objects by attribute values",
		Long: `Find live objects whose attributes match an expression of
key:"value" clauses joined by " and " or " or " (not both). Values are compared
as text. An empty expression matches every live object.

Examples:
  edb query --db ./plant.db 'material:"steel"'
  edb query --db ./plant.db 'material:"steel" and finish:"zinc"'
  edb query --db ./plant.db 'status:"draft" or status:"review"' --at 1700000000000
  edb query --db ./plant.db 'material:"steel"' --sql`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := ""
			if len(args) == 1 {
				expr = args[0]
			}
			return runQuery(cmd.Context(), opts, expr, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.At, "at", 0, "timestamp to query at (default: now)")
	cmd.Flags().BoolVar(&opts.SQL, "sql", false, "evaluate in SQLite without replaying the log (sqlite backend only)")

	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions, expr string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	pred, err := query.Parse(expr)
	if err != nil {
		return formatter.Fail(err)
	}
	if text, err := query.Format(pred); err == nil {
		formatter.VerboseLog("Query: %s", text)
	}

	if opts.SQL {
		return runSQLQuery(orBackground(ctx), opts, pred, cmd, formatter)
	}

	s, err := openSession(orBackground(ctx), opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer s.Close()

	var entries []record.Entry
	if cmd.Flags().Changed("at") {
		entries = s.engine.QueryAt(pred, opts.At)
	} else {
		entries = s.engine.Query(pred)
	}
	return formatter.Success(EntriesView(entries))
}

// runSQLQuery answers the query from the SQLite entries table directly.
func runSQLQuery(ctx context.Context, opts *QueryOptions, pred query.Predicate, cmd *cobra.Command, formatter *OutputFormatter) error {
	if opts.Backend == BackendBadger {
		return NewExitError(ExitCommandError, fmt.Sprintf("--sql requires the %s backend", BackendSQLite))
	}
	if err := checkDatabase(opts.RootOptions, true); err != nil {
		return err
	}

	_, st, err := openLog(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	var entries []record.Entry
	if cmd.Flags().Changed("at") {
		entries, err = st.QueryAt(ctx, pred, opts.At)
	} else {
		entries, err = st.Query(ctx, pred)
	}
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Success(EntriesView(entries))
}
