package record

import (
	"fmt"
	"strings"
)

// Entry is one immutable, versioned snapshot of a record.
//
// ID is stable across all versions of the same logical record. Version
// starts at 1 on first insert and increments by exactly one on every
// subsequent write to the same ID, deletions included. A deletion is a
// tombstone Entry (Deleted=true, empty attributes); nothing is removed.
//
// On an incoming update, Version carries the version the caller last saw.
// Once the engine accepts the commit it holds the assigned version.
type Entry struct {
	ID         string     `json:"id"`
	Attributes Attributes `json:"attributes"`
	Timestamp  int64      `json:"timestamp"`
	Version    int64      `json:"version"`
	Deleted    bool       `json:"deleted,omitempty"`
}

// NewEntry creates a live entry with the given attributes.
func NewEntry(id string, attrs Attributes) Entry {
	return Entry{ID: id, Attributes: attrs.Clone()}
}

// Get returns the attribute value for key.
func (e Entry) Get(key string) (Value, bool) {
	v, ok := e.Attributes[key]
	return v, ok
}

// Live reports whether the entry represents an existing record.
func (e Entry) Live() bool {
	return !e.Deleted
}

// Clone returns a copy that shares no mutable state with e.
func (e Entry) Clone() Entry {
	e.Attributes = e.Attributes.Clone()
	return e
}

// ValidateID checks the hierarchical identifier format: a non-empty,
// forward-slash delimited path whose segments are non-empty. A single
// leading slash is allowed ("/t/1").
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	path := strings.TrimPrefix(id, "/")
	if path == "" {
		return fmt.Errorf("id %q has no segments", id)
	}
	for i, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("id %q has an empty segment at position %d", id, i)
		}
	}
	return nil
}

// ParentID returns the identifier one level up, or "" for a top-level id.
// Converters use it to place sub-records under their owner.
func ParentID(id string) string {
	idx := strings.LastIndex(id, "/")
	if idx <= 0 {
		return ""
	}
	return id[:idx]
}
