package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/edb/internal/record"
)

const (
	MetricCommits       = "commits_total"
	MetricRejections    = "commit_rejections_total"
	MetricEntries       = "entries_written_total"
	MetricCommitSeconds = "commit_duration_seconds"
	MetricObjects       = "objects"
)

const metricsNamespace = "edb"

// metrics holds the collectors of one engine. Collectors are per engine
// rather than package globals so several engines (one per context) can
// live in one process.
type metrics struct {
	commits    prometheus.Counter
	rejections *prometheus.CounterVec
	entries    *prometheus.CounterVec
	latency    prometheus.Histogram
	objects    prometheus.Gauge
}

// newMetrics creates the collectors and registers them with reg when it
// is non-nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      MetricCommits,
			Help:      "Number of commits appended to the log.",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      MetricRejections,
			Help:      "Number of rejected commits by error code.",
		}, []string{"code"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      MetricEntries,
			Help:      "Number of entries written by kind.",
		}, []string{"kind"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      MetricCommitSeconds,
			Help:      "Time spent in Commit, rejections included.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      MetricObjects,
			Help:      "Number of ids in the current index, tombstones included.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commits, m.rejections, m.entries, m.latency, m.objects)
	}
	return m
}

func (m *metrics) observeCommit(c *record.Commit, err error, d time.Duration) {
	m.latency.Observe(d.Seconds())
	if err != nil {
		m.rejections.WithLabelValues(string(CodeOf(err))).Inc()
		return
	}
	m.commits.Inc()
	m.entries.WithLabelValues("insert").Add(float64(len(c.Inserts)))
	m.entries.WithLabelValues("update").Add(float64(len(c.Updates)))
	m.entries.WithLabelValues("delete").Add(float64(len(c.Deletions)))
}
