package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/record"
	"github.com/roach88/edb/internal/testutil"
)

// lifecycle writes /x at 1000 (v1), updates it at 1010 (v2) and deletes
// it at 1020 (v3).
func lifecycle(t *testing.T) *Engine {
	t.Helper()
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"A": record.Int(1)})))
	mustCommit(t, e, updateOf(record.Entry{ID: "/x", Version: 1, Attributes: record.Attributes{"A": record.Int(2)}}))
	mustCommit(t, e, deleteOf("/x"))
	return e
}

func TestGetObjectAt(t *testing.T) {
	e := lifecycle(t)

	_, ok := e.GetObjectAt("/x", 999)
	assert.False(t, ok, "nothing before the first commit")

	tests := []struct {
		at      int64
		version int64
		value   record.Value
		deleted bool
	}{
		{1000, 1, record.Int(1), false},
		{1005, 1, record.Int(1), false},
		{1010, 2, record.Int(2), false},
		{1019, 2, record.Int(2), false},
		{1020, 3, nil, true},
		{5000, 3, nil, true},
	}
	for _, tt := range tests {
		got, ok := e.GetObjectAt("/x", tt.at)
		require.True(t, ok, "at %d", tt.at)
		assert.Equal(t, tt.version, got.Version, "at %d", tt.at)
		assert.Equal(t, tt.deleted, got.Deleted, "at %d", tt.at)
		if tt.value != nil {
			assert.Equal(t, tt.value, got.Attributes["A"], "at %d", tt.at)
		} else {
			assert.Empty(t, got.Attributes, "tombstones carry no attributes")
		}
	}
}

func TestGetObjectReturnsTombstone(t *testing.T) {
	e := lifecycle(t)

	got, ok := e.GetObject("/x")
	require.True(t, ok)
	assert.True(t, got.Deleted)
	assert.False(t, e.Exists("/x"))

	_, ok = e.GetObject("/never")
	assert.False(t, ok)
}

func TestGetHistory(t *testing.T) {
	e := lifecycle(t)

	h := e.GetHistory("/x")
	require.Len(t, h, 3)
	for i, entry := range h {
		assert.Equal(t, int64(i+1), entry.Version)
		assert.Equal(t, int64(1000+10*i), entry.Timestamp)
	}
	assert.True(t, h[2].Deleted)

	assert.Empty(t, e.GetHistory("/never"))
}

func TestResurrectionRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"v": record.Int(1)})))
	mustCommit(t, e, deleteOf("/x"))
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"v": record.Int(2)})))
	mustCommit(t, e, insertOf(record.NewEntry("/y", nil)))

	assert.Equal(t, []string{"/x"}, e.GetResurrectedIDs())

	h := e.GetHistory("/x")
	require.Len(t, h, 3)
	assert.False(t, h[0].Deleted)
	assert.True(t, h[1].Deleted)
	assert.False(t, h[2].Deleted)
	assert.Equal(t, int64(3), h[2].Version, "version continues from the tombstone")
}

func TestGetLog(t *testing.T) {
	e := newTestEngine(t)

	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"n": record.Int(0)}))) // 1000, before from
	mustCommit(t, e, insertOf(record.NewEntry("/other", nil)))                               // 1010, other id
	for i := 1; i <= 3; i++ {                                                                // 1020..1040
		mustCommit(t, e, updateOf(record.Entry{ID: "/x", Version: int64(i), Attributes: record.Attributes{"n": record.Int(int64(i))}}))
	}
	mustCommit(t, e, deleteOf("/other")) // 1050

	got := e.GetLog("/x", 1010, 2000)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, int64(1020+10*i), c.Timestamp)
		assert.True(t, c.Touches("/x"))
	}

	assert.Len(t, e.GetLog("/x", 1000, 1020), 2, "bounds are inclusive")
	assert.Len(t, e.GetLog("/x", 0, 999), 0)
	assert.Empty(t, e.GetLog("/x", 2000, 1000), "inverted range")
	assert.Empty(t, e.GetLog("/never", 0, 5000))
}

func TestGetCommits(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 4; i++ {
		mustCommit(t, e, &record.Commit{Comment: "c", Inserts: []record.Entry{record.NewEntry("/n/"+string(rune('a'+i)), nil)}})
	}

	got := e.GetCommits(1010, 1020)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1010), got[0].Timestamp)
	assert.Equal(t, int64(1020), got[1].Timestamp)
}

func TestGetCommitsByTag(t *testing.T) {
	e := newTestEngine(t)

	c1 := insertOf(record.NewEntry("/a", nil))
	c1.Role = "engineer"
	c2 := &record.Commit{Committer: "bob", Role: "engineer", Inserts: []record.Entry{record.NewEntry("/b", nil)}}
	c3 := insertOf(record.NewEntry("/c", nil))
	c3.DomainID, c3.ConnectorID, c3.InstanceID = "design", "cad", "cad-1"
	for _, c := range []*record.Commit{c1, c2, c3} {
		mustCommit(t, e, c)
	}

	byCommitter, err := e.GetCommitsByTag(record.TagCommitter, "alice")
	require.NoError(t, err)
	require.Len(t, byCommitter, 2)
	assert.Equal(t, c1.Revision, byCommitter[0].Revision)
	assert.Equal(t, c3.Revision, byCommitter[1].Revision)

	byRole, err := e.GetCommitsByTag(record.TagRole, "engineer")
	require.NoError(t, err)
	assert.Len(t, byRole, 2)

	byInstance, err := e.GetCommitsByTag(record.TagInstanceID, "cad-1")
	require.NoError(t, err)
	require.Len(t, byInstance, 1)
	assert.Equal(t, c3.Revision, byInstance[0].Revision)

	none, err := e.GetCommitsByTag(record.TagCommitter, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = e.GetCommitsByTag("colour", "red")
	assert.True(t, IsValidation(err))
}

func TestGetCommitByRevision(t *testing.T) {
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/a", nil)))
	mustCommit(t, e, deleteOf("/a"))

	got, ok := e.GetCommitByRevision(testutil.Revision(2))
	require.True(t, ok)
	assert.Equal(t, []string{"/a"}, got.Deletions)
	assert.Equal(t, testutil.Revision(1), got.ParentRevision)

	_, ok = e.GetCommitByRevision(testutil.Revision(7))
	assert.False(t, ok)
}

func TestGetCurrentRevisionEmpty(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, uuid.Nil, e.GetCurrentRevision())
	assert.Empty(t, e.GetResurrectedIDs())
	assert.Empty(t, e.IDs())
}

func TestReadsReturnCopies(t *testing.T) {
	e := newTestEngine(t)
	mustCommit(t, e, insertOf(record.NewEntry("/x", record.Attributes{"a": record.Int(1)})))

	got, _ := e.GetObject("/x")
	got.Attributes["a"] = record.Int(99)

	h := e.GetHistory("/x")
	h[0].Attributes["a"] = record.Int(98)

	c, _ := e.GetCommitByRevision(e.GetCurrentRevision())
	c.Inserts[0].Attributes["a"] = record.Int(97)

	again, _ := e.GetObject("/x")
	assert.Equal(t, record.Int(1), again.Attributes["a"])
}

func TestCallerCommitDoesNotAliasState(t *testing.T) {
	e := newTestEngine(t)
	c := insertOf(record.NewEntry("/x", record.Attributes{"a": record.Int(1)}))
	mustCommit(t, e, c)

	c.Inserts[0].Attributes["a"] = record.Int(42)

	got, _ := e.GetObject("/x")
	assert.Equal(t, record.Int(1), got.Attributes["a"])
}

func TestIDs(t *testing.T) {
	e := lifecycle(t)
	mustCommit(t, e, insertOf(record.NewEntry("/a", nil)))
	assert.Equal(t, []string{"/a", "/x"}, e.IDs(), "tombstoned ids are listed")
}
