package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache outcome labels
const (
	cacheOutcomeHit    = "hit"
	cacheOutcomeMiss   = "miss"
	cacheOutcomeBypass = "bypass"
)

var (
	// Quotes calculated, partitioned by cache outcome and whether the base cost fell back
	quotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_quotes_total",
			Help: "Total number of quotes calculated",
		},
		[]string{"cache", "fallback", "dry_run"},
	)

	quoteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_quote_duration_seconds",
			Help:    "Quote latencies in seconds including rule and cost lookups",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"cache"},
	)

	garmentCostFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_garment_cost_fallbacks_total",
			Help: "Quotes priced with the default unit cost because the garment cost was unavailable",
		},
	)

	ruleMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_rule_mutations_total",
			Help: "Committed pricing rule mutations by action",
		},
		[]string{"action"},
	)

	historyWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_history_write_failures_total",
			Help: "Calculation history records that could not be written",
		},
	)
)

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
