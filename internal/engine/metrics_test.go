package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edb/internal/record"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, WithRegisterer(reg))

	mustCommit(t, e, insertOf(record.NewEntry("/a", nil), record.NewEntry("/b", nil)))
	mustCommit(t, e, deleteOf("/a"))
	_, err := e.Commit(context.Background(), insertOf(record.NewEntry("/b", record.Attributes{"x": record.Int(1)})))
	require.Error(t, err)

	assert.Equal(t, 2.0, promtest.ToFloat64(e.metrics.commits))
	assert.Equal(t, 2.0, promtest.ToFloat64(e.metrics.entries.WithLabelValues("insert")))
	assert.Equal(t, 1.0, promtest.ToFloat64(e.metrics.entries.WithLabelValues("delete")))
	assert.Equal(t, 1.0, promtest.ToFloat64(e.metrics.rejections.WithLabelValues(string(ErrCodeDuplicateID))))
	assert.Equal(t, 2.0, promtest.ToFloat64(e.metrics.objects))

	count, err := promtest.GatherAndCount(reg, "edb_commit_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetrics_Unregistered(t *testing.T) {
	// Two engines without a registerer must not collide
	a := newTestEngine(t)
	b := newTestEngine(t)
	mustCommit(t, a, insertOf(record.NewEntry("/a", nil)))

	assert.Equal(t, 1.0, promtest.ToFloat64(a.metrics.commits))
	assert.Equal(t, 0.0, promtest.ToFloat64(b.metrics.commits))
}
