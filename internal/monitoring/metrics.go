package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eod_backtest_runs_total",
			Help: "Total number of backtest runs by outcome",
		},
		[]string{"symbol", "outcome"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eod_backtest_run_duration_seconds",
			Help:    "Wall time of a single backtest run",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"symbol"},
	)

	// Trade metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eod_backtest_trades_total",
			Help: "Total number of closed trades by exit reason",
		},
		[]string{"symbol", "exit_reason"},
	)

	tradeReturn = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eod_backtest_trade_return_pct",
			Help:    "Distribution of per-trade net returns in percent",
			Buckets: prometheus.LinearBuckets(-10, 2, 11),
		},
		[]string{"symbol"},
	)

	skippedEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eod_backtest_skipped_entries_total",
			Help: "Entry signals that could not be executed",
		},
		[]string{"symbol", "reason"},
	)

	// Sweep metrics
	sweepVariants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eod_backtest_sweep_variants_total",
			Help: "Parameter sweep variants processed by outcome",
		},
		[]string{"outcome"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eod_backtest_errors_total",
			Help: "Total number of errors by kind",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeReturn)
	prometheus.MustRegister(skippedEntries)
	prometheus.MustRegister(sweepVariants)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordRun records a finished run. outcome is "ok" or the error kind.
func RecordRun(symbol, outcome string, elapsed time.Duration) {
	runsTotal.WithLabelValues(symbol, outcome).Inc()
	runDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
}

// RecordTrade records a closed trade
func RecordTrade(symbol, exitReason string, returnPct float64) {
	tradesTotal.WithLabelValues(symbol, exitReason).Inc()
	tradeReturn.WithLabelValues(symbol).Observe(returnPct)
}

// RecordSkippedEntry records an entry that could not be filled
func RecordSkippedEntry(symbol, reason string) {
	skippedEntries.WithLabelValues(symbol, reason).Inc()
}

// RecordSweepVariant records one processed sweep variant
func RecordSweepVariant(outcome string) {
	sweepVariants.WithLabelValues(outcome).Inc()
}

// RecordError increments the error counter
func RecordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}
