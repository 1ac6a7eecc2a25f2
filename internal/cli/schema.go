package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/edb/internal/record"
	"github.com/roach88/edb/internal/schema"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	File string // optional commit to check
}

// SchemaIssue is one entry of a commit rejected by the schema.
type SchemaIssue struct {
	ID      string `json:"id"`
	Prefix  string `json:"prefix,omitempty"`
	Message string `json:"message"`
}

// SchemaResult holds the schema check result.
type SchemaResult struct {
	Valid    bool          `json:"valid"`
	Prefixes []string      `json:"prefixes"`
	Checked  int           `json:"checked"`
	Issues   []SchemaIssue `json:"issues,omitempty"`
}

func (r SchemaResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d schema prefix(es): %s", len(r.Prefixes), strings.Join(r.Prefixes, ", "))
	if r.Checked > 0 {
		fmt.Fprintf(&b, "\n%d entr(ies) checked", r.Checked)
	}
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "\n✗ %s: %s", issue.ID, issue.Message)
	}
	if r.Valid {
		b.WriteString("\n✓ valid")
	}
	return b.String()
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <path>",
		Short: "Check CUE schemas and, optionally, a commit against them",
		Long: `Load CUE schemas from a file or directory and list the id prefixes
they constrain. With -f, also check every insert and update of a commit
file against its schema without committing anything.

Schemas are declared under a top-level "schemas" struct keyed by id
prefix:

  schemas: "design/parts": {
      name:     string
      count:    int & >0
      material: "steel" | "aluminium"
  }

Examples:
  edb schema ./schemas
  edb schema ./schemas -f change.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "commit YAML file to check, - for stdin")

	return cmd
}

func runSchema(opts *SchemaOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	set, err := schema.Load(path)
	if err != nil {
		var schemaErr *schema.Error
		if errors.As(err, &schemaErr) {
			return formatter.fail(ErrCodeSchema, ExitFailure, err)
		}
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	formatter.VerboseLog("Loaded %d schema(s) from %s", set.Len(), path)

	result := SchemaResult{Valid: true, Prefixes: set.Prefixes()}
	if opts.File == "" {
		return formatter.Success(result)
	}

	spec, err := readCommitSpec(opts.File, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read commit", err)
	}
	c, err := spec.Build()
	if err != nil {
		return formatter.Fail(err)
	}

	for _, e := range append(append([]record.Entry{}, c.Inserts...), c.Updates...) {
		result.Checked++
		if err := set.ValidateEntry(e); err != nil {
			issue := SchemaIssue{ID: e.ID, Message: err.Error()}
			var schemaErr *schema.Error
			if errors.As(err, &schemaErr) {
				issue.Prefix = schemaErr.Prefix
				issue.Message = schemaErr.Message
			}
			result.Issues = append(result.Issues, issue)
			result.Valid = false
		}
	}

	if !result.Valid {
		if formatter.Format == "json" {
			if err := formatter.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeSchema, Message: fmt.Sprintf("%d entr(ies) violate the schema", len(result.Issues))},
			}); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(formatter.Writer, result)
		}
		return &ExitError{Code: ExitFailure, Message: "schema violations", Reported: true}
	}
	return formatter.Success(result)
}
