package engine

import (
	"bytes"

	"github.com/roach88/edb/internal/record"
)

// Change is the before/after pair of one attribute key.
// A nil side means the key was absent.
type Change struct {
	Before record.Value
	After  record.Value
}

// MarshalJSON encodes an absent side as null and a Ref as {"$ref": ...}.
func (c Change) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"before":`)
	if err := writeValue(&buf, c.Before); err != nil {
		return nil, err
	}
	buf.WriteString(`,"after":`)
	if err := writeValue(&buf, c.After); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v record.Value) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	data, err := record.MarshalValue(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// Diff is the key-level delta of one object between two timestamps.
// Unchanged keys are omitted.
type Diff struct {
	ID      string            `json:"id"`
	From    int64             `json:"from"`
	To      int64             `json:"to"`
	Changes map[string]Change `json:"changes"`
}

// DifferenceCount returns the number of keys that differ.
func (d Diff) DifferenceCount() int {
	return len(d.Changes)
}

// Keys returns the changed keys in canonical order.
func (d Diff) Keys() []string {
	attrs := make(record.Attributes, len(d.Changes))
	for k := range d.Changes {
		attrs[k] = nil
	}
	return attrs.SortedKeys()
}

// Diff compares the attributes of id visible at t1 and at t2. An object
// that does not exist, or is deleted, at one side counts as having no
// attributes there, so every key of the other side is a change.
func (e *Engine) Diff(id string, t1, t2 int64) Diff {
	st := e.snapshot()
	before := visibleAttributes(st, id, t1)
	after := visibleAttributes(st, id, t2)

	d := Diff{ID: id, From: t1, To: t2, Changes: map[string]Change{}}
	for k, b := range before {
		a, ok := after[k]
		if !ok {
			d.Changes[k] = Change{Before: b}
			continue
		}
		if !record.ValueEqual(a, b) {
			d.Changes[k] = Change{Before: b, After: a}
		}
	}
	for k, a := range after {
		if _, ok := before[k]; !ok {
			d.Changes[k] = Change{After: a}
		}
	}
	return d
}

func visibleAttributes(st *state, id string, at int64) record.Attributes {
	entry, ok := st.entryAt(id, at)
	if !ok || entry.Deleted {
		return nil
	}
	return entry.Attributes
}
