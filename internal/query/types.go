package query

import (
	"sort"

	"github.com/roach88/edb/internal/record"
)

// Predicate is a filter over a record's attributes.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Join selects how the clauses of a flat query are combined.
type Join string

const (
	JoinAnd Join = "and"
	JoinOr  Join = "or"
)

// Equals matches when the attribute Key exists and its canonical string
// form equals Value.
type Equals struct {
	Key   string
	Value string
}

func (Equals) predicateNode() {}

// And matches when every predicate matches. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or matches when at least one predicate matches. An empty Or matches
// nothing.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// All returns the predicate that matches every record.
func All() Predicate {
	return And{}
}

// FromMap builds a flat predicate from key/value pairs combined with join.
// Clauses are ordered by key so the result is deterministic.
// An unknown join is treated as JoinAnd. No pairs means no constraint, so
// an empty map yields All whatever the join.
func FromMap(pairs map[string]string, join Join) Predicate {
	if len(pairs) == 0 {
		return All()
	}
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, Equals{Key: k, Value: pairs[k]})
	}
	if join == JoinOr {
		return Or{Predicates: preds}
	}
	return And{Predicates: preds}
}

// Match reports whether attrs satisfy p. A nil predicate matches all.
func Match(p Predicate, attrs record.Attributes) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		return matchEquals(pred, attrs)
	case *Equals:
		return matchEquals(*pred, attrs)
	case And:
		return matchAll(pred.Predicates, attrs)
	case *And:
		return matchAll(pred.Predicates, attrs)
	case Or:
		return matchAny(pred.Predicates, attrs)
	case *Or:
		return matchAny(pred.Predicates, attrs)
	default:
		return false
	}
}

func matchEquals(eq Equals, attrs record.Attributes) bool {
	v, ok := attrs[eq.Key]
	if !ok || v == nil {
		return false
	}
	return v.String() == eq.Value
}

func matchAll(preds []Predicate, attrs record.Attributes) bool {
	for _, p := range preds {
		if !Match(p, attrs) {
			return false
		}
	}
	return true
}

func matchAny(preds []Predicate, attrs record.Attributes) bool {
	for _, p := range preds {
		if Match(p, attrs) {
			return true
		}
	}
	return false
}
