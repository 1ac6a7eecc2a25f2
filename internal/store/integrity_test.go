package store

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

func buildIntegrityLog(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)

	c1 := createTestCommit(1, uuid.Nil)
	c1.Inserts = []record.Entry{insertEntry("/x", 1, nil), insertEntry("/y", 1, nil)}
	stamp(c1)
	mustAppend(t, s, c1)

	c2 := createTestCommit(2, c1.Revision)
	c2.Updates = []record.Entry{insertEntry("/x", 2, record.Attributes{"a": record.Int(1)})}
	stamp(c2)
	mustAppend(t, s, c2)

	c3 := createTestCommit(3, c2.Revision)
	c3.Deletions = []string{"/x"}
	mustAppend(t, s, c3)

	return s
}

func TestCheckIntegrity_ConsistentLog(t *testing.T) {
	s := buildIntegrityLog(t)

	report, err := s.CheckIntegrity(context.Background())
	if err != nil {
		t.Fatalf("CheckIntegrity() failed: %v", err)
	}
	if !report.OK() {
		t.Errorf("unexpected problems: %v", report.Problems)
	}
	if report.Commits != 3 || report.Entries != 4 {
		t.Errorf("counts = (%d commits, %d entries), want (3, 4)", report.Commits, report.Entries)
	}
}

func TestCheckIntegrity_DetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper string
		want   string
	}{
		{
			name:   "broken parent chain",
			tamper: "UPDATE commits SET parent_revision = '' WHERE seq = 2",
			want:   "parent",
		},
		{
			name:   "timestamp regression",
			tamper: "UPDATE commits SET timestamp = 1 WHERE seq = 3",
			want:   "not after",
		},
		{
			name:   "version gap",
			tamper: "DELETE FROM entries WHERE oid = '/x' AND version = 2",
			want:   `id "/x"`,
		},
		{
			name:   "entry timestamp drift",
			tamper: "UPDATE entries SET timestamp = 7 WHERE oid = '/y'",
			want:   "timestamp different",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildIntegrityLog(t)
			if _, err := s.db.Exec(tt.tamper); err != nil {
				t.Fatalf("tamper: %v", err)
			}

			report, err := s.CheckIntegrity(context.Background())
			if err != nil {
				t.Fatalf("CheckIntegrity() failed: %v", err)
			}
			if report.OK() {
				t.Fatal("expected problems, got none")
			}
			if !strings.Contains(strings.Join(report.Problems, "\n"), tt.want) {
				t.Errorf("problems %v do not mention %q", report.Problems, tt.want)
			}
		})
	}
}
