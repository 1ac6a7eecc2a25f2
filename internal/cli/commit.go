package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/edb/internal/harness"
)

// CommitOptions holds flags for the commit command.
type CommitOptions struct {
	*RootOptions
	File      string
	Committer string // overrides the file's committer when set
}

// NewCommitCommand creates the commit command.
func NewCommitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CommitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Apply a commit from a YAML file",
		Long: `Apply one commit of inserts, updates and deletions.

The commit is read from a YAML file (or stdin with -f -):

  committer: alice
  comment: initial import
  insert:
    - id: design/parts/1
      attributes: { name: bracket, count: 4 }
  update:
    - id: design/parts/2
      version: 3           # version last read
      attributes: { name: plate }
  delete:
    - design/parts/3

The commit is applied completely or not at all. The database is created
if it does not exist.

Exit codes:
  0 - Commit applied
  1 - Commit rejected (conflict, missing object, validation, ...)
  2 - Command error (unreadable file, database cannot be opened)

Examples:
  edb commit --db ./plant.db -f change.yaml
  cat change.yaml | edb commit --db ./plant.db -f - --committer bob`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "commit YAML file, - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&opts.Committer, "committer", "", "committer name, overrides the file")

	return cmd
}

func runCommit(ctx context.Context, opts *CommitOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	spec, err := readCommitSpec(opts.File, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read commit", err)
	}
	if opts.Committer != "" {
		spec.Committer = opts.Committer
	}

	c, err := spec.Build()
	if err != nil {
		return formatter.Fail(err)
	}

	s, err := openSession(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.engine.Commit(ctx, c); err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Committed %d insert(s), %d update(s), %d deletion(s)",
		len(c.Inserts), len(c.Updates), len(c.Deletions))
	return formatter.Success(newCommitResult(c))
}

// readCommitSpec decodes a commit file strictly, so a misspelled key
// fails instead of being dropped.
func readCommitSpec(path string, stdin io.Reader) (*harness.CommitSpec, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var spec harness.CommitSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &spec, nil
}
