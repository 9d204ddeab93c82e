// Package metrics holds the Prometheus instruments for ledger mutations and statistics recomputes.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/honeydew/review-engine/internal/domain"
)

var (
	LedgerMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeydew_ledger_mutations_total",
			Help: "Ledger mutations by operation and result",
		},
		[]string{"operation", "result"}, // result: "ok" or an engine error code
	)

	LedgerMutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "honeydew_ledger_mutation_duration_seconds",
			Help:    "Duration of ledger mutations including the statistics recompute",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RecomputeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "honeydew_recompute_total",
			Help: "Statistics rows recomputed by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: title, critic, outlet; outcome: replaced, removed
	)

	RecomputeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "honeydew_recompute_failures_total",
			Help: "Recomputes that failed and rolled back their mutation",
		},
	)

	RecomputeKeys = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "honeydew_recompute_keys",
			Help:    "Number of affected keys per recompute",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 100, 1000},
		},
	)

	DriftDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "honeydew_stats_drift_rows",
			Help: "Cached statistics rows that disagreed with the ledger at the last verification",
		},
	)
)

// Result labels. Engine errors are labelled by their numeric code.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// ResultLabel maps a mutation error to its result label.
func ResultLabel(err error) string {
	if err == nil {
		return ResultOK
	}
	var ee *domain.EngineError
	if errors.As(err, &ee) {
		return strconv.Itoa(ee.Code)
	}
	return ResultError
}

// RecordMutation records one ledger mutation.
func RecordMutation(operation string, duration time.Duration, err error) {
	LedgerMutations.WithLabelValues(operation, ResultLabel(err)).Inc()
	LedgerMutationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRecompute records one recomputed statistics row.
func RecordRecompute(kind string, removed bool) {
	outcome := "replaced"
	if removed {
		outcome = "removed"
	}
	RecomputeTotal.WithLabelValues(kind, outcome).Inc()
}
