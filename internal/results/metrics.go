package results

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resultsCalculated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osemosys_results_calculated_total",
		Help: "Results derived by a formula, by result",
	}, []string{"result"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "osemosys_results_cache_hits_total",
		Help: "Lookups answered from the result cache",
	})

	resultsMissing = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "osemosys_results_missing_total",
		Help: "Results that could not be produced, by result",
	}, []string{"result"})

	calculationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "osemosys_results_calculation_duration_seconds",
		Help:    "Time spent evaluating a result formula, including its dependencies",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"result"})
)
