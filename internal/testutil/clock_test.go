package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSteppedClock_StartsAtStart(t *testing.T) {
	clock := NewSteppedClock(1000, 10)
	assert.Equal(t, int64(1000), clock.Peek())
	assert.Equal(t, int64(1000), clock.Now())
}

func TestSteppedClock_AdvancesByStep(t *testing.T) {
	clock := NewSteppedClock(1000, 10)

	assert.Equal(t, int64(1000), clock.Now())
	assert.Equal(t, int64(1010), clock.Now())
	assert.Equal(t, int64(1020), clock.Now())
	assert.Equal(t, int64(1030), clock.Peek())
}

func TestSteppedClock_MinimumStep(t *testing.T) {
	clock := NewSteppedClock(5, 0)
	assert.Equal(t, int64(5), clock.Now())
	assert.Equal(t, int64(6), clock.Now())
}

func TestSteppedClock_Reset(t *testing.T) {
	clock := NewSteppedClock(1, 1)
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, int64(1), clock.Now())
}

func TestSteppedClock_ThreadSafe(t *testing.T) {
	clock := NewSteppedClock(1, 1)
	const numGoroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]int64, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]int64, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	for _, row := range results {
		for _, v := range row {
			require.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
		}
	}
	assert.Len(t, seen, numGoroutines*callsPerGoroutine)
}
