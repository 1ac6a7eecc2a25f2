package record

import (
	"fmt"

	"github.com/google/uuid"
)

// Provenance tag keys accepted by tag filters.
const (
	TagCommitter   = "committer"
	TagRole        = "role"
	TagDomainID    = "domain_id"
	TagConnectorID = "connector_id"
	TagInstanceID  = "instance_id"
	TagContextID   = "context_id"
)

// TagKeys lists every provenance tag key in canonical order.
var TagKeys = []string{
	TagCommitter,
	TagRole,
	TagDomainID,
	TagConnectorID,
	TagInstanceID,
	TagContextID,
}

// Commit is an atomic group of inserts, updates and deletions with
// provenance metadata. Once the engine accepts a commit it is immutable.
//
// Revision is uuid.Nil until the engine assigns one (a caller may also
// supply its own, e.g. when importing a log). ParentRevision links to the
// previously persisted commit; it is uuid.Nil for the first commit.
// Fingerprint is the content address of the commit as it was submitted
// (see Fingerprint); the engine fills it in.
type Commit struct {
	Revision       uuid.UUID `json:"revision"`
	ParentRevision uuid.UUID `json:"parent_revision"`
	Timestamp      int64     `json:"timestamp"`
	Fingerprint    string    `json:"fingerprint,omitempty"`

	Committer   string `json:"committer"`
	Role        string `json:"role"`
	DomainID    string `json:"domain_id"`
	ConnectorID string `json:"connector_id"`
	InstanceID  string `json:"instance_id"`
	ContextID   string `json:"context_id"`
	Comment     string `json:"comment"`

	Inserts   []Entry  `json:"inserts"`
	Updates   []Entry  `json:"updates"`
	Deletions []string `json:"deletions"`
}

// Tag returns the value of a provenance tag.
// Returns false for unknown keys.
func (c *Commit) Tag(key string) (string, bool) {
	switch key {
	case TagCommitter:
		return c.Committer, true
	case TagRole:
		return c.Role, true
	case TagDomainID:
		return c.DomainID, true
	case TagConnectorID:
		return c.ConnectorID, true
	case TagInstanceID:
		return c.InstanceID, true
	case TagContextID:
		return c.ContextID, true
	default:
		return "", false
	}
}

// Touches reports whether the commit writes the given id.
func (c *Commit) Touches(id string) bool {
	for _, e := range c.Inserts {
		if e.ID == id {
			return true
		}
	}
	for _, e := range c.Updates {
		if e.ID == id {
			return true
		}
	}
	for _, d := range c.Deletions {
		if d == id {
			return true
		}
	}
	return false
}

// IDs returns every id the commit mentions, inserts first, then updates,
// then deletions.
func (c *Commit) IDs() []string {
	ids := make([]string, 0, len(c.Inserts)+len(c.Updates)+len(c.Deletions))
	for _, e := range c.Inserts {
		ids = append(ids, e.ID)
	}
	for _, e := range c.Updates {
		ids = append(ids, e.ID)
	}
	return append(ids, c.Deletions...)
}

// Validate checks structural rules: well-formed ids and no id appearing
// more than once across inserts, updates and deletions.
func (c *Commit) Validate() error {
	seen := make(map[string]string, len(c.Inserts)+len(c.Updates)+len(c.Deletions))
	check := func(kind, id string) error {
		if err := ValidateID(id); err != nil {
			return &ValidationError{ID: id, Message: err.Error()}
		}
		if prev, ok := seen[id]; ok {
			return &ValidationError{
				ID:      id,
				Message: fmt.Sprintf("appears as %s and %s in one commit", prev, kind),
			}
		}
		seen[id] = kind
		return nil
	}

	for _, e := range c.Inserts {
		if err := check("insert", e.ID); err != nil {
			return err
		}
		if e.Deleted {
			return &ValidationError{ID: e.ID, Message: "insert must not be a tombstone"}
		}
	}
	for _, e := range c.Updates {
		if err := check("update", e.ID); err != nil {
			return err
		}
		if e.Deleted {
			return &ValidationError{ID: e.ID, Message: "update must not be a tombstone; use a deletion"}
		}
	}
	for _, id := range c.Deletions {
		if err := check("deletion", id); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the commit.
func (c *Commit) Clone() *Commit {
	out := *c
	out.Inserts = cloneEntries(c.Inserts)
	out.Updates = cloneEntries(c.Updates)
	out.Deletions = append([]string(nil), c.Deletions...)
	return &out
}

func cloneEntries(in []Entry) []Entry {
	if in == nil {
		return nil
	}
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e.Clone()
	}
	return out
}

// ValidationError reports a malformed commit or entry.
type ValidationError struct {
	ID      string
	Message string
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("validation failed for %q: %s", e.ID, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}
