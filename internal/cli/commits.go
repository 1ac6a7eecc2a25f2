package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
)

// CommitsOptions holds flags for the commits command.
type CommitsOptions struct {
	*RootOptions
	Tag  string // key=value
	From int64
	To   int64
}

// NewCommitsCommand creates the commits command.
func NewCommitsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommitsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "commits",
		Short: "List commits by time range or provenance tag",
		Long: `List commits in log order. With --tag, only commits whose provenance
tag has the given value; tags are committer, role, domain_id,
connector_id, instance_id and context_id.

Examples:
  edb commits --db ./plant.db
  edb commits --db ./plant.db --from 1700000000000
  edb commits --db ./plant.db --tag committer=alice`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommits(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Tag, "tag", "", "filter by provenance tag (key=value)")
	cmd.Flags().Int64Var(&opts.From, "from", 0, "earliest commit timestamp")
	cmd.Flags().Int64Var(&opts.To, "to", 0, "latest commit timestamp (default: now)")

	return cmd
}

func runCommits(ctx context.Context, opts *CommitsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var key, value string
	if opts.Tag != "" {
		var ok bool
		key, value, ok = strings.Cut(opts.Tag, "=")
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --tag %q: want key=value", opts.Tag))
		}
	}

	s, err := openSession(orBackground(ctx), opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer s.Close()

	to := opts.To
	if !cmd.Flags().Changed("to") {
		to = s.engine.LastTimestamp()
	}

	if key == "" {
		return formatter.Success(CommitsView(s.engine.GetCommits(opts.From, to)))
	}

	tagged, err := s.engine.GetCommitsByTag(key, value)
	if err != nil {
		return formatter.Fail(err)
	}
	out := make([]*record.Commit, 0, len(tagged))
	for _, c := range tagged {
		if c.Timestamp >= opts.From && c.Timestamp <= to {
			out = append(out, c)
		}
	}
	return formatter.Success(CommitsView(out))
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <revision>",
		Short:         "Show one commit with all of its entries",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := uuid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid revision %q", args[0]), err)
			}
			return runShow(cmd.Context(), rootOpts, rev, cmd)
		},
	}
}

func runShow(ctx context.Context, opts *RootOptions, rev uuid.UUID, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if err := checkDatabase(opts, true); err != nil {
		return err
	}
	log, _, err := openLog(opts)
	if err != nil {
		return err
	}
	defer log.Close()

	// One commit is read straight from the log; no replay needed.
	c, err := log.ReadCommit(orBackground(ctx), rev)
	if isMissingCommit(err) {
		return formatter.Fail(&engine.NotFoundError{Revision: rev})
	}
	if err != nil {
		return formatter.Fail(fmt.Errorf("read commit %s: %w", rev, err))
	}
	return formatter.Success(CommitView(*c))
}

// NewRevisionCommand creates the revision command.
func NewRevisionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "revision",
		Short:         "Show the current revision",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			s, err := openSession(orBackground(cmd.Context()), rootOpts, true)
			if err != nil {
				return err
			}
			defer s.Close()

			return formatter.Success(RevisionView{
				Revision:  s.engine.GetCurrentRevision(),
				Timestamp: s.engine.LastTimestamp(),
				Commits:   s.engine.CommitCount(),
			})
		},
	}
}

// NewResurrectedCommand creates the resurrected command.
func NewResurrectedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resurrected",
		Short:         "List ids that were deleted and later inserted again",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			s, err := openSession(orBackground(cmd.Context()), rootOpts, true)
			if err != nil {
				return err
			}
			defer s.Close()

			return formatter.Success(IDsView(s.engine.GetResurrectedIDs()))
		},
	}
}
