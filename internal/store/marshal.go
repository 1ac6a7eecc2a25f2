package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/edb/internal/record"
)

// marshalAttributes converts Attributes to JSON TEXT for storage.
// Keys are sorted so identical entries produce identical rows, but strings
// are stored byte for byte: canonical JSON NFC-normalizes, which would
// merge distinct keys and rewrite values. Canonical form is for
// fingerprints only.
func marshalAttributes(attrs record.Attributes) (string, error) {
	if attrs == nil {
		attrs = record.Attributes{}
	}
	data, err := attrs.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

// unmarshalAttributes parses canonical JSON TEXT to Attributes.
// Integers go through json.Number so values beyond 2^53 survive.
func unmarshalAttributes(data string) (record.Attributes, error) {
	if data == "" || data == "{}" {
		return record.Attributes{}, nil
	}
	var attrs record.Attributes
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return attrs, nil
}

// formatRevision stores uuid.Nil as the empty string so the first commit's
// parent is visibly absent in the table.
func formatRevision(rev uuid.UUID) string {
	if rev == uuid.Nil {
		return ""
	}
	return rev.String()
}

func parseRevision(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	rev, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse revision %q: %w", s, err)
	}
	return rev, nil
}
