package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/edb/internal/query"
)

// DefaultColumn is the JSON attributes column of the entries table.
const DefaultColumn = "attributes"

// SQLCompiler compiles query predicates to parameterized SQLite conditions
// over a column holding attribute JSON as written by the store.
//
// CRITICAL: keys and values are always bound parameters, never interpolated.
// Only the column name, which the caller controls, appears in the SQL text.
type SQLCompiler struct {
	// Column is the qualified attributes column, e.g. "e.attributes".
	Column string
}

// NewSQLCompiler creates a compiler over DefaultColumn.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{Column: DefaultColumn}
}

// Compile converts p to a boolean SQL expression and its parameters.
// A nil predicate compiles to "1 = 1".
//
// The expression matches exactly the attribute sets query.Match accepts:
// an attribute compares by its canonical string form, so booleans compare
// as "true"/"false", integers by their decimal text and references by
// their target id.
func (c *SQLCompiler) Compile(p query.Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}
	return c.compilePredicate(p)
}

func (c *SQLCompiler) compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case query.Equals:
		return c.compileEquals(pred)
	case query.And:
		return c.compileJoin(pred.Predicates, " AND ", "1 = 1")
	case query.Or:
		return c.compileJoin(pred.Predicates, " OR ", "1 = 0")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals extracts the attribute as text. json_type separates the
// cases json_extract would otherwise blur: SQLite returns booleans as 1/0
// and a {"$ref": id} object as JSON text.
func (c *SQLCompiler) compileEquals(eq query.Equals) (string, []any, error) {
	path, err := jsonPath(eq.Key)
	if err != nil {
		return "", nil, err
	}
	col := c.column()
	sql := fmt.Sprintf(`(CASE json_type(%[1]s, ?)`+
		` WHEN 'true' THEN 'true'`+
		` WHEN 'false' THEN 'false'`+
		` WHEN 'object' THEN json_extract(%[1]s, ?)`+
		` ELSE CAST(json_extract(%[1]s, ?) AS TEXT)`+
		` END) = ?`, col)
	return sql, []any{path, path + `."$ref"`, path, eq.Value}, nil
}

func (c *SQLCompiler) compileJoin(preds []query.Predicate, op, empty string) (string, []any, error) {
	if len(preds) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(preds))
	var params []any
	for i, p := range preds {
		sql, ps, err := c.compilePredicate(p)
		if err != nil {
			return "", nil, fmt.Errorf("clause %d: %w", i, err)
		}
		parts = append(parts, "("+sql+")")
		params = append(params, ps...)
	}
	return strings.Join(parts, op), params, nil
}

func (c *SQLCompiler) column() string {
	if c.Column == "" {
		return DefaultColumn
	}
	return c.Column
}

// jsonPath quotes key as a single JSON path member. Keys that cannot be
// quoted are rejected; the query parser never produces them.
func jsonPath(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty attribute key")
	}
	if strings.ContainsAny(key, `"\`) {
		return "", fmt.Errorf("attribute key %q cannot be used in a JSON path", key)
	}
	return `$."` + key + `"`, nil
}
