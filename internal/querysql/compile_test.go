package querysql

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

func TestCompile_Equals(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(query.Equals{Key: "colour", Value: "red"})
	require.NoError(t, err)

	assert.Contains(t, sql, "json_type(attributes, ?)")
	assert.Contains(t, sql, "json_extract(attributes, ?)")
	assert.NotContains(t, sql, "red", "value must be bound, not interpolated")
	assert.NotContains(t, sql, "colour", "key must be bound, not interpolated")
	assert.Equal(t, []any{`$."colour"`, `$."colour"."$ref"`, `$."colour"`, "red"}, params)
}

func TestCompile_QualifiedColumn(t *testing.T) {
	compiler := &SQLCompiler{Column: "e.attributes"}

	sql, _, err := compiler.Compile(query.Equals{Key: "a", Value: "1"})
	require.NoError(t, err)
	assert.Contains(t, sql, "json_type(e.attributes, ?)")
	assert.NotContains(t, sql, "(attributes")
}

func TestCompile_Joins(t *testing.T) {
	compiler := NewSQLCompiler()

	sql, params, err := compiler.Compile(query.And{Predicates: []query.Predicate{
		query.Equals{Key: "a", Value: "1"},
		query.Equals{Key: "b", Value: "2"},
	}})
	require.NoError(t, err)
	assert.Contains(t, sql, ") AND (")
	assert.Len(t, params, 8)
	assert.Equal(t, "1", params[3])
	assert.Equal(t, "2", params[7])

	sql, _, err = compiler.Compile(query.Or{Predicates: []query.Predicate{
		query.Equals{Key: "a", Value: "1"},
		query.Equals{Key: "b", Value: "2"},
	}})
	require.NoError(t, err)
	assert.Contains(t, sql, ") OR (")
}

func TestCompile_EmptyAndNil(t *testing.T) {
	compiler := NewSQLCompiler()

	tests := []struct {
		name string
		pred query.Predicate
		want string
	}{
		{"nil", nil, "1 = 1"},
		{"all", query.All(), "1 = 1"},
		{"empty or", query.Or{}, "1 = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sql)
			assert.Empty(t, params)
		})
	}
}

func TestCompile_RejectsUnquotableKeys(t *testing.T) {
	compiler := NewSQLCompiler()

	for _, key := range []string{"", `a"b`, `a\b`} {
		_, _, err := compiler.Compile(query.Equals{Key: key, Value: "x"})
		assert.Error(t, err, "key %q", key)
	}

	_, _, err := compiler.Compile(query.And{Predicates: []query.Predicate{
		query.Equals{Key: "ok", Value: "x"},
		query.Equals{Key: `bad"`, Value: "x"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clause 1")
}

// TestCompile_MatchesInMemory evaluates every compiled predicate in SQLite
// against stored attribute JSON and compares with query.Match.
func TestCompile_MatchesInMemory(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "match.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rows := []record.Attributes{
		{"name": record.String("bracket"), "qty": record.Int(5)},
		{"name": record.String("bolt"), "qty": record.Int(-12), "metric": record.Bool(true)},
		{"name": record.String("5"), "metric": record.Bool(false)},
		{"parent": record.Ref("/parts/1"), "name": record.String("nut")},
		{"name": record.String(`say "hi"`), "dotted.key": record.String("x")},
		{"big": record.Int(9007199254740993)},
		{"finish": record.String("e\u0301"), "\u00e9": record.String("composed"), "e\u0301": record.String("decomposed")},
		{"tag": record.String("<a&b>")},
		{},
	}

	preds := []query.Predicate{
		query.Equals{Key: "name", Value: "bolt"},
		query.Equals{Key: "name", Value: "5"},
		query.Equals{Key: "qty", Value: "5"},
		query.Equals{Key: "qty", Value: "-12"},
		query.Equals{Key: "qty", Value: "05"},
		query.Equals{Key: "metric", Value: "true"},
		query.Equals{Key: "metric", Value: "false"},
		query.Equals{Key: "metric", Value: "1"},
		query.Equals{Key: "parent", Value: "/parts/1"},
		query.Equals{Key: "name", Value: `say "hi"`},
		query.Equals{Key: "dotted.key", Value: "x"},
		query.Equals{Key: "big", Value: "9007199254740993"},
		query.Equals{Key: "finish", Value: "e\u0301"},
		query.Equals{Key: "finish", Value: "\u00e9"},
		query.Equals{Key: "\u00e9", Value: "composed"},
		query.Equals{Key: "e\u0301", Value: "decomposed"},
		query.Equals{Key: "tag", Value: "<a&b>"},
		query.Equals{Key: "missing", Value: ""},
		query.And{Predicates: []query.Predicate{
			query.Equals{Key: "name", Value: "bolt"},
			query.Equals{Key: "metric", Value: "true"},
		}},
		query.Or{Predicates: []query.Predicate{
			query.Equals{Key: "name", Value: "nut"},
			query.Equals{Key: "qty", Value: "5"},
		}},
		query.All(),
		query.Or{},
	}

	compiler := NewSQLCompiler()
	for pi, pred := range preds {
		cond, params, err := compiler.Compile(pred)
		require.NoError(t, err)

		for ri, attrs := range rows {
			doc, err := attrs.MarshalJSON()
			require.NoError(t, err)

			var got bool
			args := append([]any{string(doc)}, params...)
			err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM (SELECT ? AS attributes) WHERE `+cond+`)`, args...).Scan(&got)
			require.NoError(t, err)

			want := query.Match(pred, attrs)
			assert.Equal(t, want, got, "predicate %d row %d: %s", pi, ri, doc)
		}
	}
}
