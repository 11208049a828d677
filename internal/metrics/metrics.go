// Package metrics holds the prometheus collectors for calculator traffic.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// calculationsTotal counts calculator invocations by kind and result
	calculationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expcalc_calculations_total",
		Help: "Total calculations by kind and result code",
	}, []string{"kind", "result"})

	// calculationDuration tracks calculator latency
	calculationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "expcalc_calculation_duration_seconds",
		Help:    "Calculation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"kind"})

	// rootFinderIterations tracks bisection effort of MDE searches
	rootFinderIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "expcalc_mde_bisection_iterations",
		Help:    "Bisection iterations summed over comparisons per MDE solve",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800},
	})

	// srmMismatches counts SRM tests that flagged a mismatch
	srmMismatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expcalc_srm_mismatches_total",
		Help: "Total sample ratio mismatch tests that flagged a mismatch",
	})

	// ledgerErrors counts failures to record a calculation
	ledgerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expcalc_ledger_errors_total",
		Help: "Total failures writing to the calculation ledger",
	})
)

// ResultOK labels a successful calculation
const ResultOK = "ok"

// ObserveCalculation records one calculator invocation. result is "ok" or the
// error code.
func ObserveCalculation(kind, result string, elapsed time.Duration) {
	calculationsTotal.WithLabelValues(kind, result).Inc()
	calculationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveBisection records the iterations spent by an MDE solve
func ObserveBisection(iterations int) {
	rootFinderIterations.Observe(float64(iterations))
}

// MismatchDetected counts a flagged SRM test
func MismatchDetected() {
	srmMismatches.Inc()
}

// LedgerError counts a failed ledger write
func LedgerError() {
	ledgerErrors.Inc()
}
