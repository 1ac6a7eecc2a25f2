package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/edb/internal/engine"
	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Index    int          // Position in the scenario's assertion list
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion %d failed: %s\n", e.Index, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		if ev.Type == EventCommit {
			fmt.Fprintf(&buf, "  [%d] commit @%d ins=%v upd=%v del=%v\n",
				ev.Step, ev.Timestamp, ev.Inserts, ev.Updates, ev.Deletions)
		} else {
			fmt.Fprintf(&buf, "  [%d] rejected %s\n", ev.Step, ev.Code)
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions and returns error messages
// for the failed ones.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		expected, actual, ok := evaluate(ctx, eng, result, a)
		if ok {
			continue
		}
		err := &AssertionError{
			Index:    i,
			Type:     a.Type,
			Expected: expected,
			Actual:   actual,
			Trace:    result.Trace,
		}
		errs = append(errs, err.Error())
	}
	return errs
}

// evaluate returns the expected and actual outcome and whether they agree.
func evaluate(ctx context.Context, eng *engine.Engine, result *Result, a Assertion) (string, string, bool) {
	switch a.Type {
	case AssertObject:
		return assertObject(eng, a)
	case AssertHistory:
		return assertHistory(eng, a)
	case AssertLog:
		got := len(eng.GetLog(a.ID, a.From, a.To))
		return countOutcome(fmt.Sprintf("commits touching %s in [%d, %d]", a.ID, a.From, a.To), *a.Count, got)
	case AssertQuery:
		return assertQuery(eng, a)
	case AssertDiff:
		return assertDiff(eng, a)
	case AssertCommitsByTag:
		commits, err := eng.GetCommitsByTag(a.Tag, a.Value)
		if err != nil {
			return fmt.Sprintf("%d commits with %s=%s", *a.Count, a.Tag, a.Value), err.Error(), false
		}
		return countOutcome(fmt.Sprintf("commits with %s=%s", a.Tag, a.Value), *a.Count, len(commits))
	case AssertResurrected:
		want := a.IDs
		if want == nil {
			want = []string{}
		}
		got := eng.GetResurrectedIDs()
		return fmt.Sprintf("resurrected %v", want), fmt.Sprintf("resurrected %v", got), slices.Equal(want, got)
	case AssertRevision:
		want := result.revisionOf(*a.Step)
		got := eng.GetCurrentRevision()
		return fmt.Sprintf("current revision %s (step %d)", want, *a.Step), fmt.Sprintf("current revision %s", got), want == got
	case AssertVerify:
		report, err := eng.Verify(ctx)
		if err != nil {
			return "verify passes", err.Error(), false
		}
		return "verify passes", fmt.Sprintf("problems: %v", report.Problems), report.OK()
	default:
		return a.Type, "unknown assertion type", false
	}
}

func countOutcome(what string, want, got int) (string, string, bool) {
	return fmt.Sprintf("%d %s", want, what), fmt.Sprintf("%d %s", got, what), want == got
}

func assertObject(eng *engine.Engine, a Assertion) (string, string, bool) {
	var (
		entry record.Entry
		ok    bool
	)
	where := a.ID
	if a.At != nil {
		entry, ok = eng.GetObjectAt(a.ID, *a.At)
		where = fmt.Sprintf("%s at %d", a.ID, *a.At)
	} else {
		entry, ok = eng.GetObject(a.ID)
	}

	if a.Missing {
		return where + " not found", describeEntry(entry, ok), !ok
	}
	if !ok {
		return where + " exists", "not found", false
	}

	var want []string
	pass := true
	if a.Version != nil {
		want = append(want, fmt.Sprintf("version %d", *a.Version))
		pass = pass && entry.Version == *a.Version
	}
	if a.Deleted != nil {
		want = append(want, fmt.Sprintf("deleted %t", *a.Deleted))
		pass = pass && entry.Deleted == *a.Deleted
	}
	if a.Attributes != nil {
		attrs, err := record.AttributesFromGo(a.Attributes)
		if err != nil {
			return where, err.Error(), false
		}
		want = append(want, fmt.Sprintf("attributes %s", formatAttributes(attrs)))
		for k, v := range attrs {
			pass = pass && record.ValueEqual(v, entry.Attributes[k])
		}
	}
	return where + " with " + strings.Join(want, ", "), describeEntry(entry, ok), pass
}

func describeEntry(e record.Entry, ok bool) string {
	if !ok {
		return "not found"
	}
	return fmt.Sprintf("version %d, deleted %t, attributes %s", e.Version, e.Deleted, formatAttributes(e.Attributes))
}

func formatAttributes(attrs record.Attributes) string {
	data, err := record.MarshalCanonical(attrs)
	if err != nil {
		return fmt.Sprintf("%v", map[string]record.Value(attrs))
	}
	return string(data)
}

func assertHistory(eng *engine.Engine, a Assertion) (string, string, bool) {
	h := eng.GetHistory(a.ID)
	var tombstones []int
	for i, e := range h {
		if e.Deleted {
			tombstones = append(tombstones, i)
		}
	}

	want := fmt.Sprintf("%d entries for %s", *a.Count, a.ID)
	got := fmt.Sprintf("%d entries for %s", len(h), a.ID)
	pass := len(h) == *a.Count
	if a.Tombstones != nil {
		want += fmt.Sprintf(", tombstones at %v", a.Tombstones)
		got += fmt.Sprintf(", tombstones at %v", tombstones)
		pass = pass && slices.Equal(a.Tombstones, tombstones)
	}
	return want, got, pass
}

func assertQuery(eng *engine.Engine, a Assertion) (string, string, bool) {
	want := a.IDs
	if want == nil {
		want = []string{}
	}
	expected := fmt.Sprintf("query %q matches %v", a.Query, want)

	var entries []record.Entry
	if a.At != nil {
		pred, err := query.Parse(a.Query)
		if err != nil {
			return expected, err.Error(), false
		}
		entries = eng.QueryAt(pred, *a.At)
	} else {
		var err error
		entries, err = eng.QueryString(a.Query)
		if err != nil {
			return expected, err.Error(), false
		}
	}

	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.ID
	}
	return expected, fmt.Sprintf("matched %v", got), slices.Equal(want, got)
}

func assertDiff(eng *engine.Engine, a Assertion) (string, string, bool) {
	d := eng.Diff(a.ID, a.From, a.To)

	var want []string
	pass := true
	if a.Count != nil {
		want = append(want, fmt.Sprintf("%d differences", *a.Count))
		pass = pass && d.DifferenceCount() == *a.Count
	}
	if a.Keys != nil {
		want = append(want, fmt.Sprintf("keys %v", a.Keys))
		pass = pass && slices.Equal(a.Keys, d.Keys())
	}
	expected := fmt.Sprintf("diff %s %d..%d: %s", a.ID, a.From, a.To, strings.Join(want, ", "))
	actual := fmt.Sprintf("%d differences, keys %v", d.DifferenceCount(), d.Keys())
	return expected, actual, pass
}
