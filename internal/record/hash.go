package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainCommit is the domain prefix for commit content fingerprints.
// Version suffix enables future algorithm migration.
const DomainCommit = "edb/commit/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator - CRITICAL for security
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content address of a commit as submitted.
//
// Revision, parent revision, timestamp and the Fingerprint field itself are
// EXCLUDED: they are assigned by the engine, so a copy of a commit taken
// before submission fingerprints the same as the original. Entry timestamps
// are excluded for the same reason. Provenance, comment and the prior versions asserted by updates
// are included.
func Fingerprint(c *Commit) (string, error) {
	obj := map[string]any{
		"committer":    c.Committer,
		"role":         c.Role,
		"domain_id":    c.DomainID,
		"connector_id": c.ConnectorID,
		"instance_id":  c.InstanceID,
		"context_id":   c.ContextID,
		"comment":      c.Comment,
		"inserts":      entriesForHash(c.Inserts, false),
		"updates":      entriesForHash(c.Updates, true),
		"deletions":    c.Deletions,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCommit, canonical), nil
}

func entriesForHash(entries []Entry, withVersion bool) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		attrs := e.Attributes
		if attrs == nil {
			attrs = Attributes{}
		}
		m := map[string]any{
			"id":         e.ID,
			"attributes": attrs,
		}
		if withVersion {
			m["version"] = e.Version
		}
		out[i] = m
	}
	return out
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFingerprint(c *Commit) string {
	fp, err := Fingerprint(c)
	if err != nil {
		panic(err)
	}
	return fp
}
