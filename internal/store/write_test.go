package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

func TestAppend_LoadRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c1 := createTestCommit(1, uuid.Nil)
	c1.Role = "engineer"
	c1.DomainID = "design"
	c1.ConnectorID = "cad"
	c1.InstanceID = "cad-1"
	c1.ContextID = "plant"
	c1.Comment = "first"
	c1.Inserts = []record.Entry{
		insertEntry("/t/1", 1, record.Attributes{"A": record.String("B"), "n": record.Int(3)}),
		insertEntry("/t/2", 1, record.Attributes{"owner": record.Ref("/t/1"), "ok": record.Bool(true)}),
	}
	stamp(c1)
	if err := s.Append(ctx, c1); err != nil {
		t.Fatalf("Append(c1) failed: %v", err)
	}

	c2 := createTestCommit(2, c1.Revision)
	c2.Updates = []record.Entry{insertEntry("/t/1", 2, record.Attributes{"A": record.String("C")})}
	c2.Deletions = []string{"/t/2"}
	stamp(c2)
	if err := s.Append(ctx, c2); err != nil {
		t.Fatalf("Append(c2) failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	want := []*record.Commit{c1, c2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_TombstoneVersion(t *testing.T) {
	s := createTestStore(t)

	c1 := createTestCommit(1, uuid.Nil)
	c1.Inserts = []record.Entry{insertEntry("/x", 1, nil)}
	stamp(c1)
	mustAppend(t, s, c1)

	c2 := createTestCommit(2, c1.Revision)
	c2.Updates = []record.Entry{insertEntry("/x", 2, record.Attributes{"a": record.Int(1)})}
	stamp(c2)
	mustAppend(t, s, c2)

	c3 := createTestCommit(3, c2.Revision)
	c3.Deletions = []string{"/x"}
	mustAppend(t, s, c3)

	var version int64
	var deleted int
	var attrs string
	err := s.db.QueryRow(
		"SELECT version, deleted, attributes FROM entries WHERE oid = '/x' AND kind = 'delete'",
	).Scan(&version, &deleted, &attrs)
	if err != nil {
		t.Fatalf("query tombstone: %v", err)
	}
	if version != 3 || deleted != 1 || attrs != "{}" {
		t.Errorf("tombstone = (v%d, deleted=%d, %s), want (v3, 1, {})", version, deleted, attrs)
	}
}

func TestAppend_DuplicateRevision(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c := createTestCommit(1, uuid.Nil)
	c.Inserts = []record.Entry{insertEntry("/a", 1, nil)}
	stamp(c)
	mustAppend(t, s, c)

	again := createTestCommit(1, uuid.Nil)
	again.Timestamp = 5000
	err := s.Append(ctx, again)
	if !errors.Is(err, ErrRevisionExists) {
		t.Fatalf("second Append() error = %v, want ErrRevisionExists", err)
	}

	n, err := s.CountCommits(ctx)
	if err != nil {
		t.Fatalf("CountCommits() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountCommits() = %d, want 1", n)
	}
}

func TestAppend_AtomicOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		build func(c *record.Commit)
	}{
		{
			name: "duplicate entry version",
			build: func(c *record.Commit) {
				c.Inserts = []record.Entry{insertEntry("/a", 1, nil)}
				c.Updates = []record.Entry{insertEntry("/a", 1, nil)}
			},
		},
		{
			name: "deletion of unknown id",
			build: func(c *record.Commit) {
				c.Inserts = []record.Entry{insertEntry("/a", 1, nil)}
				c.Deletions = []string{"/missing"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()

			c := createTestCommit(1, uuid.Nil)
			tt.build(c)
			stamp(c)
			if err := s.Append(ctx, c); err == nil {
				t.Fatal("expected Append() to fail")
			}

			var commits, entries int
			s.db.QueryRow("SELECT COUNT(*) FROM commits").Scan(&commits)
			s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&entries)
			if commits != 0 || entries != 0 {
				t.Errorf("partial write persisted: %d commits, %d entries", commits, entries)
			}
		})
	}
}

func TestReadCommit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c1 := createTestCommit(1, uuid.Nil)
	c1.Inserts = []record.Entry{insertEntry("/a", 1, record.Attributes{"k": record.String("v")})}
	stamp(c1)
	mustAppend(t, s, c1)

	c2 := createTestCommit(2, c1.Revision)
	c2.Inserts = []record.Entry{insertEntry("/b", 1, nil)}
	stamp(c2)
	mustAppend(t, s, c2)

	got, err := s.ReadCommit(ctx, c1.Revision)
	if err != nil {
		t.Fatalf("ReadCommit() failed: %v", err)
	}
	if diff := cmp.Diff(c1, got); diff != "" {
		t.Errorf("ReadCommit() mismatch (-want +got):\n%s", diff)
	}

	_, err = s.ReadCommit(ctx, testRevision(99))
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadCommit(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestLoad_EmptyLog(t *testing.T) {
	s := createTestStore(t)

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load() = %v, want empty non-nil slice", got)
	}
}

// stamp copies the commit timestamp into its entries, as the engine does.
func stamp(c *record.Commit) {
	for i := range c.Inserts {
		c.Inserts[i].Timestamp = c.Timestamp
		if c.Inserts[i].Attributes == nil {
			c.Inserts[i].Attributes = record.Attributes{}
		}
	}
	for i := range c.Updates {
		c.Updates[i].Timestamp = c.Timestamp
		if c.Updates[i].Attributes == nil {
			c.Updates[i].Attributes = record.Attributes{}
		}
	}
}

func mustAppend(t *testing.T, s *Store, c *record.Commit) {
	t.Helper()
	if err := s.Append(context.Background(), c); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
}

func TestAppendAll(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c1 := createTestCommit(1, uuid.Nil)
	c1.Inserts = []record.Entry{insertEntry("/a", 1, record.Attributes{"n": record.Int(1)})}
	stamp(c1)
	c2 := createTestCommit(2, c1.Revision)
	c2.Deletions = []string{"/a"}
	stamp(c2)

	if err := s.AppendAll(ctx, []*record.Commit{c1, c2}); err != nil {
		t.Fatalf("AppendAll() failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff([]*record.Commit{c1, c2}, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendAll_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c1 := createTestCommit(1, uuid.Nil)
	c1.Inserts = []record.Entry{insertEntry("/a", 1, nil)}
	stamp(c1)
	c2 := createTestCommit(2, c1.Revision)
	c2.Deletions = []string{"/missing"}
	stamp(c2)

	err := s.AppendAll(ctx, []*record.Commit{c1, c2})
	if err == nil {
		t.Fatal("AppendAll() with a bad commit: expected error")
	}
	if !strings.Contains(err.Error(), "commit 1") {
		t.Errorf("error %q does not name the failing commit", err)
	}

	n, err := s.CountCommits(ctx)
	if err != nil {
		t.Fatalf("CountCommits() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("CountCommits() = %d after rollback, want 0", n)
	}
	var entries int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&entries); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if entries != 0 {
		t.Errorf("%d entries left after rollback, want 0", entries)
	}
}

// Keys and values that differ only in Unicode normalization are distinct
// attributes and must come back byte for byte.
func TestAppend_KeepsUnnormalizedText(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	composed, decomposed := "\u00e9", "e\u0301"
	attrs := record.Attributes{
		composed:   record.String("composed"),
		decomposed: record.String(decomposed),
		"tag":      record.String("<a&b>"),
	}
	c := createTestCommit(1, uuid.Nil)
	c.Inserts = []record.Entry{insertEntry("/a", 1, attrs)}
	stamp(c)
	mustAppend(t, s, c)

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if diff := cmp.Diff(attrs, got[0].Inserts[0].Attributes); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}

	rows, err := s.Query(ctx, query.Equals{Key: decomposed, Value: decomposed})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "/a" {
		t.Errorf("Query() = %v, want /a", rows)
	}
	rows, err = s.Query(ctx, query.Equals{Key: decomposed, Value: composed})
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Query() for the composed value = %v, want none", rows)
	}
}
