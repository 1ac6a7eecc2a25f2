package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/record"
	"github.com/roach88/edb/internal/store"
)

// Result types returned by commands. Each marshals to the JSON data
// payload and renders itself as text through String.

// ObjectView is one entry of an object.
type ObjectView record.Entry

func (v ObjectView) String() string {
	return formatEntry(record.Entry(v))
}

// HistoryView is the full history of one object, oldest first.
type HistoryView []record.Entry

func (v HistoryView) String() string {
	if len(v) == 0 {
		return "(no history)"
	}
	lines := make([]string, len(v))
	for i, e := range v {
		lines[i] = formatEntry(e)
	}
	return strings.Join(lines, "\n")
}

// CommitsView lists commits in log order, one line each.
type CommitsView []*record.Commit

func (v CommitsView) String() string {
	if len(v) == 0 {
		return "(no commits)"
	}
	lines := make([]string, len(v))
	for i, c := range v {
		lines[i] = formatCommitLine(c)
	}
	return strings.Join(lines, "\n")
}

// CommitView is a single commit with all of its entries.
type CommitView record.Commit

func (v CommitView) String() string {
	c := record.Commit(v)
	var b strings.Builder
	fmt.Fprintf(&b, "revision  %s\n", c.Revision)
	fmt.Fprintf(&b, "parent    %s\n", c.ParentRevision)
	fmt.Fprintf(&b, "timestamp %d\n", c.Timestamp)
	for _, key := range record.TagKeys {
		if value, _ := c.Tag(key); value != "" {
			fmt.Fprintf(&b, "%-9s %s\n", key, value)
		}
	}
	if c.Comment != "" {
		fmt.Fprintf(&b, "comment   %s\n", c.Comment)
	}
	for _, e := range c.Inserts {
		fmt.Fprintf(&b, "+ %s\n", formatEntry(e))
	}
	for _, e := range c.Updates {
		fmt.Fprintf(&b, "~ %s\n", formatEntry(e))
	}
	for _, id := range c.Deletions {
		fmt.Fprintf(&b, "- %s\n", id)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// EntriesView is the result of a query, ordered by id.
type EntriesView []record.Entry

func (v EntriesView) String() string {
	if len(v) == 0 {
		return "(no matches)"
	}
	lines := make([]string, len(v))
	for i, e := range v {
		lines[i] = formatEntry(e)
	}
	return strings.Join(lines, "\n")
}

// DiffView lists the attributes that differ between two points in time.
type DiffView engine.Diff

func (v DiffView) String() string {
	d := engine.Diff(v)
	if d.DifferenceCount() == 0 {
		return fmt.Sprintf("%s: no differences between %d and %d", d.ID, d.From, d.To)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d difference(s) between %d and %d", d.ID, d.DifferenceCount(), d.From, d.To)
	for _, key := range d.Keys() {
		ch := d.Changes[key]
		fmt.Fprintf(&b, "\n  %s: %s -> %s", key, formatValue(ch.Before), formatValue(ch.After))
	}
	return b.String()
}

// IDsView is a plain list of object ids.
type IDsView []string

func (v IDsView) String() string {
	if len(v) == 0 {
		return "(none)"
	}
	return strings.Join(v, "\n")
}

// RevisionView describes the head of the log.
type RevisionView struct {
	Revision  uuid.UUID `json:"revision"`
	Timestamp int64     `json:"timestamp"`
	Commits   int       `json:"commits"`
}

func (v RevisionView) String() string {
	if v.Revision == uuid.Nil {
		return "(empty log)"
	}
	return fmt.Sprintf("%s @%d (%d commits)", v.Revision, v.Timestamp, v.Commits)
}

// CommitResult is what the commit command reports for an accepted commit.
type CommitResult struct {
	Revision  uuid.UUID `json:"revision"`
	Timestamp int64     `json:"timestamp"`
	Inserts   []string  `json:"inserts"`   // id@version
	Updates   []string  `json:"updates"`   // id@version
	Deletions []string  `json:"deletions"` // ids actually deleted
}

func newCommitResult(c *record.Commit) CommitResult {
	r := CommitResult{
		Revision:  c.Revision,
		Timestamp: c.Timestamp,
		Inserts:   []string{},
		Updates:   []string{},
		Deletions: []string{},
	}
	for _, e := range c.Inserts {
		r.Inserts = append(r.Inserts, fmt.Sprintf("%s@%d", e.ID, e.Version))
	}
	for _, e := range c.Updates {
		r.Updates = append(r.Updates, fmt.Sprintf("%s@%d", e.ID, e.Version))
	}
	r.Deletions = append(r.Deletions, c.Deletions...)
	return r
}

func (r CommitResult) String() string {
	return fmt.Sprintf("committed %s @%d ins=%v upd=%v del=%v",
		r.Revision, r.Timestamp, r.Inserts, r.Updates, r.Deletions)
}

// VerifyResult combines the engine's replay check with the SQLite
// integrity scan, when the backend is SQLite.
type VerifyResult struct {
	Commits   int                    `json:"commits"`
	Objects   int                    `json:"objects"`
	Problems  []string               `json:"problems"`
	Integrity *store.IntegrityReport `json:"integrity,omitempty"`
}

// OK reports whether neither check found a problem.
func (r VerifyResult) OK() bool {
	return len(r.Problems) == 0 && (r.Integrity == nil || r.Integrity.OK())
}

func (r VerifyResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d commits, %d objects", r.Commits, r.Objects)
	problems := r.Problems
	if r.Integrity != nil {
		problems = append(problems[:len(problems):len(problems)], r.Integrity.Problems...)
	}
	for _, p := range problems {
		fmt.Fprintf(&b, "\n  problem: %s", p)
	}
	if r.OK() {
		b.WriteString("\n✓ log is consistent")
	}
	return b.String()
}

func formatEntry(e record.Entry) string {
	if e.Deleted {
		return fmt.Sprintf("%s v%d @%d deleted", e.ID, e.Version, e.Timestamp)
	}
	return fmt.Sprintf("%s v%d @%d %s", e.ID, e.Version, e.Timestamp, formatAttributes(e.Attributes))
}

func formatAttributes(attrs record.Attributes) string {
	data, err := record.MarshalCanonical(attrs)
	if err != nil {
		return fmt.Sprintf("%v", map[string]record.Value(attrs))
	}
	return string(data)
}

func formatValue(v record.Value) string {
	if v == nil {
		return "(absent)"
	}
	data, err := record.MarshalCanonical(v)
	if err != nil {
		return v.String()
	}
	return string(data)
}

func formatCommitLine(c *record.Commit) string {
	return fmt.Sprintf("%s @%d %s ins=%d upd=%d del=%d",
		c.Revision, c.Timestamp, c.Committer, len(c.Inserts), len(c.Updates), len(c.Deletions))
}
