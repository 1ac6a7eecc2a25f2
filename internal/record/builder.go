package record

import "fmt"

// Builder accumulates inserts, updates and deletions into one Commit.
//
// An id may appear at most once per builder; a second mention fails
// immediately with a *ValidationError rather than at commit time.
// The builder never touches the engine - it is pure data assembly.
//
// Builder is not safe for concurrent use.
type Builder struct {
	commit Commit
	seen   map[string]string // id -> kind of first mention
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]string)}
}

// Committer sets the committer provenance tag.
func (b *Builder) Committer(name string) *Builder {
	b.commit.Committer = name
	return b
}

// Role sets the role provenance tag.
func (b *Builder) Role(role string) *Builder {
	b.commit.Role = role
	return b
}

// Source sets the domain, connector and instance provenance tags.
func (b *Builder) Source(domainID, connectorID, instanceID string) *Builder {
	b.commit.DomainID = domainID
	b.commit.ConnectorID = connectorID
	b.commit.InstanceID = instanceID
	return b
}

// Context sets the partition the commit belongs to.
func (b *Builder) Context(contextID string) *Builder {
	b.commit.ContextID = contextID
	return b
}

// Comment sets the free-form commit message.
func (b *Builder) Comment(comment string) *Builder {
	b.commit.Comment = comment
	return b
}

// Insert records a new entry.
func (b *Builder) Insert(e Entry) error {
	if err := b.claim(e.ID, "insert"); err != nil {
		return err
	}
	e = e.Clone()
	e.Version = 0
	e.Timestamp = 0
	b.commit.Inserts = append(b.commit.Inserts, e)
	return nil
}

// Update records a change to an existing entry.
// e.Version must be the version the caller last read.
func (b *Builder) Update(e Entry) error {
	if err := b.claim(e.ID, "update"); err != nil {
		return err
	}
	e = e.Clone()
	e.Timestamp = 0
	b.commit.Updates = append(b.commit.Updates, e)
	return nil
}

// Add records an update when e carries a prior version (Version > 0) and an
// insert otherwise.
func (b *Builder) Add(e Entry) error {
	if e.Version > 0 {
		return b.Update(e)
	}
	return b.Insert(e)
}

// Delete records the deletion of id.
func (b *Builder) Delete(id string) error {
	if err := b.claim(id, "deletion"); err != nil {
		return err
	}
	b.commit.Deletions = append(b.commit.Deletions, id)
	return nil
}

// Len returns the number of ids recorded so far.
func (b *Builder) Len() int {
	return len(b.seen)
}

// Produce returns the assembled commit. The builder can keep being used;
// later calls do not affect commits already produced.
func (b *Builder) Produce() *Commit {
	return b.commit.Clone()
}

func (b *Builder) claim(id, kind string) error {
	if err := ValidateID(id); err != nil {
		return &ValidationError{ID: id, Message: err.Error()}
	}
	if prev, ok := b.seen[id]; ok {
		return &ValidationError{
			ID:      id,
			Message: fmt.Sprintf("already added as %s, cannot add as %s", prev, kind),
		}
	}
	b.seen[id] = kind
	return nil
}
