// Package telemetry exposes the engine's prometheus collectors. All
// collectors register on the default registry; main serves them via
// promhttp.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"reactdb/pkg/store"
)

var (
	// ReactionsApplied counts applied mutations by action
	// (added|removed|changed).
	ReactionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reactdb_reactions_applied_total",
		Help: "Reaction mutations applied, by resulting action.",
	}, []string{"action"})

	// InteractionsDropped counts interactions that mutated nothing, by
	// reason (duplicate|malformed|store_failure).
	InteractionsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reactdb_interactions_dropped_total",
		Help: "Interactions that did not result in a mutation.",
	}, []string{"reason"})

	// StoreRetries counts writer retry attempts (not first attempts).
	StoreRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactdb_store_retries_total",
		Help: "Persistence writer retry attempts.",
	})

	// ReconcilerRuns counts completed reconciler sweeps.
	ReconcilerRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactdb_reconciler_runs_total",
		Help: "Completed duplicate reconciler runs.",
	})

	// ReconcilerDeleted counts legacy event rows removed by the
	// reconciler.
	ReconcilerDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactdb_reconciler_deleted_total",
		Help: "Duplicate legacy event rows deleted.",
	})

	// InteractionDuration observes end-to-end interaction handling time.
	InteractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reactdb_interaction_duration_seconds",
		Help:    "End-to-end interaction handling latency.",
		Buckets: prometheus.DefBuckets,
	})

	// store size gauges, sampled on scrape
	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactdb_store_disk_bytes",
		Help: "Bytes on disk under the pebble path.",
	}, func() float64 { return float64(store.GetSizes().DiskBytes) })
	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactdb_store_records",
		Help: "Aggregate reaction documents stored.",
	}, func() float64 { return float64(store.GetSizes().Records) })
	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "reactdb_store_events",
		Help: "Legacy event rows stored.",
	}, func() float64 { return float64(store.GetSizes().Events) })
)
