package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	computationTotalMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlap_computations_total",
			Help: "Total number of indicator computations",
		}, []string{"indicator", "status"},
	)

	computationLatencyMetrics = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "overlap_computation_duration_seconds",
			Help:    "Indicator computation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
		}, []string{"indicator"},
	)

	computationBarsMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlap_computation_bars_total",
			Help: "Total number of input bars processed",
		}, []string{"indicator"},
	)

	datasetImportMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlap_dataset_imports_total",
			Help: "Total number of dataset imports from exchanges",
		}, []string{"exchange", "success"},
	)

	httpRequestMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlap_http_requests_total",
			Help: "Total number of API requests",
		}, []string{"method", "route", "status_code"},
	)

	scriptRunMetrics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlap_script_runs_total",
			Help: "Total number of Starlark script runs",
		}, []string{"success"},
	)
)

func init() {
	prometheus.MustRegister(
		computationTotalMetrics,
		computationLatencyMetrics,
		computationBarsMetrics,
		datasetImportMetrics,
		httpRequestMetrics,
		scriptRunMetrics,
	)
}

// Status labels for ObserveComputation.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ObserveComputation records one indicator run.
func ObserveComputation(indicator string, bars int, duration time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	computationTotalMetrics.WithLabelValues(indicator, status).Inc()
	if err == nil {
		computationLatencyMetrics.WithLabelValues(indicator).Observe(duration.Seconds())
		computationBarsMetrics.WithLabelValues(indicator).Add(float64(bars))
	}
}

func ObserveImport(exchange string, err error) {
	datasetImportMetrics.WithLabelValues(exchange, strconv.FormatBool(err == nil)).Inc()
}

func ObserveRequest(method, route string, code int) {
	httpRequestMetrics.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func ObserveScript(err error) {
	scriptRunMetrics.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
}
