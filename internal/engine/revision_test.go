package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()

	assert.Equal(t, uuid.Version(7), a.Version())
	assert.NotEqual(t, a, b)
}

func TestFixedGenerator(t *testing.T) {
	r1 := uuid.MustParse("00000000-0000-7000-8000-000000000001")
	r2 := uuid.MustParse("00000000-0000-7000-8000-000000000002")
	g := NewFixedGenerator(r1, r2)

	assert.Equal(t, r1, g.Generate())
	assert.Equal(t, r2, g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
