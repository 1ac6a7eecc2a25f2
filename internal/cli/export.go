package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
)

// Dump files hold one JSON commit per line, in log order. A ".zst"
// suffix selects zstd compression.
const zstdSuffix = ".zst"

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// ExportResult reports what export or import moved.
type ExportResult struct {
	Path     string `json:"path"`
	Commits  int    `json:"commits"`
	Revision string `json:"revision"`
}

func (r ExportResult) String() string {
	return fmt.Sprintf("%d commits, head %s (%s)", r.Commits, r.Revision, r.Path)
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the commit log as JSON lines",
		Long: `Write every commit, in log order, as one JSON object per line.
The dump keeps revisions and timestamps, so import reproduces the log
exactly, also into a different backend.

Examples:
  edb export --db ./plant.db -o plant.jsonl
  edb export --db ./plant.db -o plant.jsonl.zst
  edb import --db ./plant-badger --backend badger plant.jsonl.zst`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "dump file (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := openSession(orBackground(ctx), opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer s.Close()

	commits := s.engine.GetCommits(0, s.engine.LastTimestamp())
	if err := writeDump(opts.Output, commits); err != nil {
		return WrapExitError(ExitCommandError, "failed to write dump", err)
	}
	formatter.VerboseLog("Wrote %d commits to %s", len(commits), opts.Output)

	return formatter.Success(ExportResult{
		Path:     opts.Output,
		Commits:  len(commits),
		Revision: s.engine.GetCurrentRevision().String(),
	})
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dump>",
		Short: "Load a JSON lines dump into an empty database",
		Long: `Load a dump written by export into an empty database. The dump is
replayed and verified in memory first, then written in a single
transaction: either the whole log is imported or nothing is.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runImport(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	ctx = orBackground(ctx)
	formatter := newFormatter(opts, cmd)

	commits, err := readDump(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dump", err)
	}

	// Replay in memory so a bad dump never reaches the database
	check, err := engine.Open(ctx, engine.NewMemoryLogFrom(commits))
	if err != nil {
		return WrapExitError(ExitFailure, "dump is inconsistent", err)
	}
	report, err := check.Verify(ctx)
	_ = check.Close()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to verify dump", err)
	}
	if !report.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("dump is inconsistent: %s", strings.Join(report.Problems, "; ")))
	}

	if err := checkDatabase(opts, false); err != nil {
		return err
	}
	log, _, err := openLog(opts)
	if err != nil {
		return err
	}
	defer log.Close()

	existing, err := log.CountCommits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read database", err)
	}
	if existing > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("database %s is not empty (%d commits)", opts.Database, existing))
	}

	if err := log.AppendAll(ctx, commits); err != nil {
		return formatter.Fail(fmt.Errorf("import %s: %w", path, err))
	}
	formatter.VerboseLog("Imported %d commits from %s", len(commits), path)

	revision := ""
	if n := len(commits); n > 0 {
		revision = commits[n-1].Revision.String()
	}
	return formatter.Success(ExportResult{Path: path, Commits: len(commits), Revision: revision})
}

func writeDump(path string, commits []*record.Commit) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, zstdSuffix) {
		zw, zerr := zstd.NewWriter(f)
		if zerr != nil {
			return zerr
		}
		defer func() {
			if closeErr := zw.Close(); err == nil {
				err = closeErr
			}
		}()
		w = zw
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, c := range commits {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode commit %s: %w", c.Revision, err)
		}
	}
	return bw.Flush()
}

func readDump(path string) ([]*record.Commit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdSuffix) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	var commits []*record.Commit
	dec := json.NewDecoder(r)
	for {
		var c record.Commit
		if err := dec.Decode(&c); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("commit %d: %w", len(commits), err)
		}
		commits = append(commits, &c)
	}
	return commits, nil
}
