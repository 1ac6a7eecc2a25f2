package engine

import (
	"github.com/roach88/edb/internal/query"
	"github.com/roach88/edb/internal/record"
)

// Query returns the live entries matching pred, ordered by id.
// A nil or empty predicate matches every live entry.
func (e *Engine) Query(pred query.Predicate) []record.Entry {
	st := e.snapshot()
	out := []record.Entry{}
	itr := st.current.Iterator()
	for !itr.Done() {
		_, entry, _ := itr.Next()
		if !entry.Live() || !query.Match(pred, entry.Attributes) {
			continue
		}
		out = append(out, entry.Clone())
	}
	return out
}

// QueryAt evaluates pred against the snapshot visible at timestamp at:
// for each id the entry with the greatest timestamp <= at, skipping ids
// that were deleted or not yet created by then.
func (e *Engine) QueryAt(pred query.Predicate, at int64) []record.Entry {
	st := e.snapshot()
	out := []record.Entry{}
	itr := st.current.Iterator()
	for !itr.Done() {
		id, _, _ := itr.Next()
		entry, ok := st.entryAt(id, at)
		if !ok || !entry.Live() || !query.Match(pred, entry.Attributes) {
			continue
		}
		out = append(out, entry.Clone())
	}
	return out
}

// QueryString parses s with query.Parse and runs it against the current
// index.
func (e *Engine) QueryString(s string) ([]record.Entry, error) {
	pred, err := query.Parse(s)
	if err != nil {
		return nil, err
	}
	return e.Query(pred), nil
}
