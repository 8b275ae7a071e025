package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "metacatalog"

// Metrics holds the Prometheus metrics of the maintenance operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Consistency checks
	CheckRunsTotal    prometheus.Counter
	CheckDuration     prometheus.Histogram
	CheckIndexedTotal prometheus.Counter
	CheckRemovedTotal *prometheus.CounterVec // reason: missing|broken
	IndexErrorsTotal  *prometheus.CounterVec // catalog

	// Rebuilds
	RebuildRunsTotal    prometheus.Counter
	RebuildDuration     prometheus.Histogram
	RebuildObjectsTotal *prometheus.CounterVec // outcome: indexed|skipped|failed

	// Reindexing
	ReindexRunsTotal   prometheus.Counter
	ReindexQueuedTotal *prometheus.CounterVec // mime_type

	// Queue
	DrainJobsTotal *prometheus.CounterVec // outcome: ok|failed
	DrainDuration  prometheus.Histogram
	QueueLength    prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CheckRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "runs_total",
			Help:      "Total number of consistency check runs",
		}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "duration_seconds",
			Help:      "Histogram of consistency check durations",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
		CheckIndexedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "indexed_ids_total",
			Help:      "Total number of distinct ids classified by consistency checks",
		}),
		CheckRemovedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "removed_ids_total",
			Help:      "Total number of ids unindexed by consistency checks",
		}, []string{"reason"}),
		IndexErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "check",
			Name:      "index_errors_total",
			Help:      "Total number of indexes that could not be enumerated",
		}, []string{"catalog"}),

		RebuildRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "runs_total",
			Help:      "Total number of catalog rebuilds",
		}),
		RebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "duration_seconds",
			Help:      "Histogram of catalog rebuild durations",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}),
		RebuildObjectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rebuild",
			Name:      "objects_total",
			Help:      "Objects processed by catalog rebuilds",
		}, []string{"outcome"}),

		ReindexRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reindex",
			Name:      "runs_total",
			Help:      "Total number of principal reindex runs",
		}),
		ReindexQueuedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reindex",
			Name:      "queued_total",
			Help:      "Ids queued for indexing, by mime type",
		}, []string{"mime_type"}),

		DrainJobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_total",
			Help:      "Jobs executed by the queue drain runner",
		}, []string{"outcome"}),
		DrainDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "drain_duration_seconds",
			Help:      "Histogram of queue drain durations",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueLength: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "length",
			Help:      "Pending jobs observed after the last drain",
		}),
	}
}

func (m *Metrics) ObserveCheck(elapsed time.Duration, indexed, missing, broken int) {
	if m == nil {
		return
	}
	m.CheckRunsTotal.Inc()
	m.CheckDuration.Observe(elapsed.Seconds())
	m.CheckIndexedTotal.Add(float64(indexed))
	m.CheckRemovedTotal.WithLabelValues("missing").Add(float64(missing))
	m.CheckRemovedTotal.WithLabelValues("broken").Add(float64(broken))
}

func (m *Metrics) IndexError(catalog string) {
	if m == nil {
		return
	}
	m.IndexErrorsTotal.WithLabelValues(catalog).Inc()
}

func (m *Metrics) ObserveRebuild(elapsed time.Duration, indexed, skipped, failed int) {
	if m == nil {
		return
	}
	m.RebuildRunsTotal.Inc()
	m.RebuildDuration.Observe(elapsed.Seconds())
	m.RebuildObjectsTotal.WithLabelValues("indexed").Add(float64(indexed))
	m.RebuildObjectsTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.RebuildObjectsTotal.WithLabelValues("failed").Add(float64(failed))
}

func (m *Metrics) ObserveReindex(counts map[string]int) {
	if m == nil {
		return
	}
	m.ReindexRunsTotal.Inc()
	for mimeType, n := range counts {
		m.ReindexQueuedTotal.WithLabelValues(mimeType).Add(float64(n))
	}
}

func (m *Metrics) ObserveDrain(elapsed time.Duration, processed, failed int, remaining int64) {
	if m == nil {
		return
	}
	m.DrainDuration.Observe(elapsed.Seconds())
	m.DrainJobsTotal.WithLabelValues("ok").Add(float64(processed - failed))
	m.DrainJobsTotal.WithLabelValues("failed").Add(float64(failed))
	if remaining >= 0 {
		m.QueueLength.Set(float64(remaining))
	}
}
