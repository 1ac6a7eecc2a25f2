package query

import (
	"fmt"
	"strings"
)

// ParseError reports a malformed query string.
type ParseError struct {
	Input   string
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse query %q at offset %d: %s", e.Input, e.Offset, e.Message)
}

// Parse parses a query string into a flat predicate.
//
// The empty (or all-blank) string parses to All(). A single clause parses
// to an And with one element. Clauses are joined by exactly " and " or
// " or "; other casings and spacings are rejected.
func Parse(s string) (Predicate, error) {
	p := &parser{input: s}
	return p.parse()
}

// MustParse is like Parse but panics on error.
// Use only in tests or with constant input.
func MustParse(s string) Predicate {
	pred, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return pred
}

type parser struct {
	input string
	pos   int
	end   int // len(input) without trailing spaces
}

func (p *parser) fail(format string, args ...any) error {
	return &ParseError{Input: p.input, Offset: p.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (Predicate, error) {
	// Spaces around the whole query are ignored; between clauses only SEP is.
	p.end = len(strings.TrimRight(p.input, " "))
	for !p.eof() && p.input[p.pos] == ' ' {
		p.pos++
	}
	if p.eof() {
		return All(), nil
	}

	var (
		clauses []Predicate
		join    Join
	)
	for {
		clause, err := p.clause()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
		if p.eof() {
			break
		}

		sepStart := p.pos
		sep, err := p.separator()
		if err != nil {
			return nil, err
		}
		if join != "" && sep != join {
			p.pos = sepStart + 1
			return nil, p.fail("cannot mix %q and %q in one query", join, sep)
		}
		join = sep
	}

	if join == JoinOr {
		return Or{Predicates: clauses}, nil
	}
	return And{Predicates: clauses}, nil
}

// clause := key ":" '"' value '"'
func (p *parser) clause() (Predicate, error) {
	start := p.pos
	for !p.eof() {
		c := p.input[p.pos]
		if c == ':' {
			break
		}
		if c == ' ' || c == '\t' || c == '"' || c == '\\' {
			return nil, p.fail("unexpected %q in key", c)
		}
		p.pos++
	}
	if p.eof() {
		return nil, p.fail("missing ':' after key %q", p.input[start:])
	}
	key := p.input[start:p.pos]
	if key == "" {
		return nil, p.fail("empty key")
	}
	p.pos++ // ':'

	if p.eof() || p.input[p.pos] != '"' {
		return nil, p.fail("missing opening quote for value of %q", key)
	}
	p.pos++

	var value strings.Builder
	for {
		if p.eof() {
			return nil, p.fail("missing closing quote for value of %q", key)
		}
		c := p.input[p.pos]
		switch c {
		case '"':
			p.pos++
			return Equals{Key: key, Value: value.String()}, nil
		case '\\':
			if p.pos+1 >= p.end {
				return nil, p.fail("dangling escape in value of %q", key)
			}
			next := p.input[p.pos+1]
			if next != '\\' && next != '"' {
				return nil, p.fail("invalid escape \\%c in value of %q", next, key)
			}
			value.WriteByte(next)
			p.pos += 2
		default:
			value.WriteByte(c)
			p.pos++
		}
	}
}

// separator reads SEP := " and " | " or ". The keywords are lowercase and
// take exactly one space on each side.
func (p *parser) separator() (Join, error) {
	rest := p.input[p.pos:p.end]

	var join Join
	switch {
	case strings.HasPrefix(rest, " and "):
		join = JoinAnd
	case strings.HasPrefix(rest, " or "):
		join = JoinOr
	default:
		return "", p.fail(`expected " and " or " or " after clause, got %q`, rest)
	}
	p.pos += len(join) + 2

	if p.eof() || p.input[p.pos] == ' ' {
		return "", p.fail("expected clause after %q", join)
	}
	return join, nil
}

func (p *parser) eof() bool {
	return p.pos >= p.end
}

// Format renders a flat predicate back into the query string grammar.
// Nested predicates and mixed joins have no string form and return an
// error.
func Format(pred Predicate) (string, error) {
	var (
		clauses []Predicate
		sep     string
	)
	switch p := pred.(type) {
	case nil:
		return "", nil
	case Equals:
		clauses, sep = []Predicate{p}, " and "
	case And:
		clauses, sep = p.Predicates, " and "
	case Or:
		if len(p.Predicates) == 0 {
			return "", fmt.Errorf("format query: empty or has no string form")
		}
		clauses, sep = p.Predicates, " or "
	default:
		return "", fmt.Errorf("format query: unsupported predicate %T", pred)
	}

	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		eq, ok := c.(Equals)
		if !ok {
			return "", fmt.Errorf("format query: nested %T has no string form", c)
		}
		parts = append(parts, eq.Key+`:"`+quoteValue(eq.Value)+`"`)
	}
	return strings.Join(parts, sep), nil
}

func quoteValue(v string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
}
