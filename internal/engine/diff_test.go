package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/record"
)

func TestDiff(t *testing.T) {
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{
		"name":  record.String("bracket"),
		"qty":   record.Int(4),
		"owner": record.Ref("/a/1"),
	}))) // 1000
	mustCommit(t, e, updateOf(record.Entry{ID: "/x", Version: 1, Attributes: record.Attributes{
		"name":   record.String("bracket"),
		"qty":    record.Int(5),
		"finish": record.String("zinc"),
	}})) // 1010

	d := e.Diff("/x", 1000, 1010)
	assert.Equal(t, 3, d.DifferenceCount())
	assert.Equal(t, []string{"finish", "owner", "qty"}, d.Keys())
	assert.Equal(t, Change{Before: record.Int(4), After: record.Int(5)}, d.Changes["qty"])
	assert.Equal(t, Change{After: record.String("zinc")}, d.Changes["finish"])
	assert.Equal(t, Change{Before: record.Ref("/a/1")}, d.Changes["owner"])
	assert.NotContains(t, d.Changes, "name", "unchanged keys are omitted")

	assert.Zero(t, e.Diff("/x", 1010, 1010).DifferenceCount())
}

func TestDiffCreatedAndDeleted(t *testing.T) {
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"a": record.Int(1), "b": record.Bool(true)}))) // 1000
	mustCommit(t, e, deleteOf("/x"))                                                                                 // 1010

	created := e.Diff("/x", 0, 1000)
	assert.Equal(t, 2, created.DifferenceCount())
	assert.Nil(t, created.Changes["a"].Before)

	deleted := e.Diff("/x", 1000, 1010)
	assert.Equal(t, 2, deleted.DifferenceCount())
	assert.Nil(t, deleted.Changes["b"].After)

	assert.Zero(t, e.Diff("/never", 0, 5000).DifferenceCount())
}

// The difference count equals the number of keys whose values differ
// between the two snapshot reads.
func TestDiffMatchesSnapshotReads(t *testing.T) {
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"a": record.Int(1)})))
	versions := []record.Attributes{
		{"a": record.Int(2), "b": record.Int(1)},
		{"b": record.Int(1)},
		{"a": record.String("2"), "b": record.Int(1), "c": record.Bool(false)},
	}
	for i, attrs := range versions {
		mustCommit(t, e, updateOf(record.Entry{ID: "/x", Version: int64(i + 1), Attributes: attrs}))
	}

	times := []int64{999, 1000, 1010, 1020, 1030}
	for _, t1 := range times {
		for _, t2 := range times {
			if t1 > t2 {
				continue
			}
			before := snapshotAttrs(e, "/x", t1)
			after := snapshotAttrs(e, "/x", t2)
			want := 0
			for k, v := range before {
				if w, ok := after[k]; !ok || !record.ValueEqual(v, w) {
					want++
				}
			}
			for k := range after {
				if _, ok := before[k]; !ok {
					want++
				}
			}
			assert.Equal(t, want, e.Diff("/x", t1, t2).DifferenceCount(), "diff %d..%d", t1, t2)
		}
	}
}

func snapshotAttrs(e *Engine, id string, at int64) record.Attributes {
	entry, ok := e.GetObjectAt(id, at)
	if !ok {
		return nil
	}
	return entry.Attributes
}

func TestChangeJSON(t *testing.T) {
	d := Diff{ID: "/x", From: 1, To: 2, Changes: map[string]Change{
		"owner": {Before: record.Ref("/a/1")},
		"qty":   {Before: record.Int(4), After: record.Int(5)},
	}}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":"/x","from":1,"to":2,"changes":{"owner":{"before":{"$ref":"/a/1"},"after":null},"qty":{"before":4,"after":5}}}`,
		string(data))
}
