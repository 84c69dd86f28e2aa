// Package metrics defines the Prometheus collectors updated by the queue
// drain loop and served by the daemon's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for the processed counter
const (
	OutcomeSucceeded  = "succeeded"
	OutcomeConflict   = "conflict"
	OutcomeRequeued   = "requeued"
	OutcomeFailed     = "failed"
	OutcomeMaxRetries = "max_retries"
	OutcomeSkipped    = "skipped"
)

// Metrics holds the collectors for the sync engine
type Metrics struct {
	QueueBacklog     prometheus.Gauge
	OpenConflicts    prometheus.Gauge
	EntriesProcessed *prometheus.CounterVec
	EntriesRecovered prometheus.Counter
	DrainDuration    prometheus.Histogram
}

// New registers the engine's collectors with the passed registerer
func New(reg prometheus.Registerer) (m *Metrics) {
	f := promauto.With(reg)

	return &Metrics{
		QueueBacklog: f.NewGauge(prometheus.GaugeOpts{
			Name: "crmsync_queue_backlog",
			Help: "Number of sync queue entries in pending or processing status",
		}),
		OpenConflicts: f.NewGauge(prometheus.GaugeOpts{
			Name: "crmsync_conflicts_open",
			Help: "Number of unresolved sync conflicts",
		}),
		EntriesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "crmsync_entries_processed_total",
			Help: "Queue entries processed by drain runs, by outcome and entity type",
		}, []string{"outcome", "entity_type"}),
		EntriesRecovered: f.NewCounter(prometheus.CounterOpts{
			Name: "crmsync_entries_recovered_total",
			Help: "Stale processing entries reset to pending by the recovery pass",
		}),
		DrainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "crmsync_drain_duration_seconds",
			Help:    "Wall time of a full drain run",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}
