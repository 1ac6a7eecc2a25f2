// Package query provides the predicate model and the query string grammar
// used to select records from the engine's indexes.
//
// PREDICATES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it:
//   - Equals: attribute key = value (string equality on the canonical
//     string form of the stored value)
//   - And: all predicates must match
//   - Or: at least one predicate must match
//
// An empty And matches every record. An empty Or matches none.
//
// GRAMMAR:
//
//	query  := "" | clause (SEP clause)*
//	clause := key ":" '"' value '"'
//	SEP    := " and " | " or "
//
// Joins may not be mixed within one string and there is no nesting or
// grouping. The language is regular on purpose; Parse rejects anything
// else with a *ParseError. Inside a quoted value `\\` is a literal
// backslash and `\"` a literal quote.
//
// Example:
//
//	p, err := query.Parse(`A:"B" and House:"Garden"`)
//	// p == And{Equals{"A", "B"}, Equals{"House", "Garden"}}
package query
