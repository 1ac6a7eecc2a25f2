package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/edb/internal/record"
)

// Error reports a schema that cannot be loaded or an entry that violates
// its constraint.
type Error struct {
	Prefix  string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: schema %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Prefix, e.Message)
	}
	if e.Prefix != "" {
		return fmt.Sprintf("schema %s: %s", e.Prefix, e.Message)
	}
	return e.Message
}

// Set holds compiled constraints keyed by id prefix.
//
// Thread-safety: constraints are read-only after construction. Checks
// share one cue.Context, which is not safe for concurrent use, so they are
// serialized.
type Set struct {
	ctx      *cue.Context
	schemas  map[string]cue.Value
	prefixes []string // longest first

	mu sync.Mutex
}

// Compile builds a Set from CUE source. filename is used in error
// positions.
func Compile(src []byte, filename string) (*Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return fromValue(ctx, v)
}

// Load reads a schema from a .cue file or from a directory holding one
// CUE package.
func Load(path string) (*Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if !info.IsDir() {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		return Compile(src, filepath.Base(path))
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &Error{Message: fmt.Sprintf("no CUE package in %s", path)}
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError("", err)
	}
	return fromValue(ctx, ctx.BuildInstance(instances[0]))
}

func fromValue(ctx *cue.Context, v cue.Value) (*Set, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	s := &Set{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	root := v.LookupPath(cue.ParsePath("schemas"))
	if !root.Exists() {
		return s, nil
	}
	iter, err := root.Fields(cue.Definitions(false))
	if err != nil {
		return nil, formatCUEError("", err)
	}
	for iter.Next() {
		prefix := strings.TrimSuffix(iter.Label(), "/")
		if err := record.ValidateID(prefix); err != nil {
			return nil, &Error{Prefix: iter.Label(), Message: err.Error(), Pos: iter.Value().Pos()}
		}
		if err := iter.Value().Err(); err != nil {
			return nil, formatCUEError(prefix, err)
		}
		s.schemas[prefix] = iter.Value()
		s.prefixes = append(s.prefixes, prefix)
	}

	slices.SortFunc(s.prefixes, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	return s, nil
}

// Prefixes returns the constrained prefixes, longest first.
func (s *Set) Prefixes() []string {
	return slices.Clone(s.prefixes)
}

// Len returns the number of constrained prefixes.
func (s *Set) Len() int {
	return len(s.prefixes)
}

// SchemaFor returns the prefix whose constraint applies to id.
func (s *Set) SchemaFor(id string) (string, bool) {
	for _, p := range s.prefixes {
		if id == p || strings.HasPrefix(id, p+"/") {
			return p, true
		}
	}
	return "", false
}

// ValidateEntry checks the attributes of e against the constraint owning
// e.ID. Entries no prefix owns pass.
func (s *Set) ValidateEntry(e record.Entry) error {
	prefix, ok := s.SchemaFor(e.ID)
	if !ok {
		return nil
	}

	data := make(map[string]any, len(e.Attributes))
	for k, v := range e.Attributes {
		data[k] = record.ToGo(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	val := s.schemas[prefix].Unify(s.ctx.Encode(data))
	if err := val.Validate(cue.Concrete(true)); err != nil {
		// Positions point into the encoded attributes; only the message helps
		msg := err.Error()
		if errs := errors.Errors(err); len(errs) > 0 {
			msg = errs[0].Error()
		}
		return &Error{Prefix: prefix, Message: msg}
	}
	return nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(prefix string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Prefix: prefix, Message: err.Error()}
	}

	first := errs[0]
	out := &Error{Prefix: prefix, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		out.Pos = positions[0]
	}
	return out
}
