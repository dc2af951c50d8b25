// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	EventsIngested prometheus.Counter
	EventsStored   *prometheus.CounterVec
	DecodeErrors   prometheus.Counter
	BatchesFailed  *prometheus.CounterVec
	BatchesRetried *prometheus.CounterVec

	// Sync metrics
	SyncRunsTotal *prometheus.CounterVec
	SyncDuration  *prometheus.HistogramVec
	HeadBlock     *prometheus.GaugeVec

	// Analysis metrics
	ReportsGenerated prometheus.Counter
	StatesBuilt      prometheus.Counter

	// Latency metrics
	RPCCallLatency  *prometheus.HistogramVec
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSync *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "uniswap_flow_lab"
	}

	return &Metrics{
		// Ingestion metrics
		EventsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total number of swap events decoded from the ledger",
		}),
		EventsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_stored_total",
			Help:      "Total number of swap events appended to the event log by pool",
		}, []string{"pool"}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "decode_errors_total",
			Help:      "Total number of raw logs that failed to decode",
		}),
		BatchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batches_failed_total",
			Help:      "Total number of log batches that failed after retry",
		}, []string{"pool"}),
		BatchesRetried: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "batches_retried_total",
			Help:      "Total number of log batches retried after a first failure",
		}, []string{"pool"}),

		// Sync metrics
		SyncRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by pool and status",
		}, []string{"pool", "status"}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Sync run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"pool"}),
		HeadBlock: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "head_block",
			Help:      "Ledger head block observed at the last sync by pool",
		}, []string{"pool"}),

		// Analysis metrics
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "reports_generated_total",
			Help:      "Total number of order-flow reports generated",
		}),
		StatesBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "states_built_total",
			Help:      "Total number of state vectors built",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evm",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSync: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of the last fully successful sync by pool",
		}, []string{"pool"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventIngested increments the ingested counter.
func RecordEventIngested() {
	DefaultMetrics.EventsIngested.Inc()
}

// RecordEventStored increments the stored counter for a pool.
func RecordEventStored(pool string) {
	DefaultMetrics.EventsStored.WithLabelValues(pool).Inc()
}

// RecordDecodeError increments the decode error counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// RecordBatchRetried increments the retried-batch counter for a pool.
func RecordBatchRetried(pool string) {
	DefaultMetrics.BatchesRetried.WithLabelValues(pool).Inc()
}

// RecordBatchFailed increments the failed-batch counter for a pool.
func RecordBatchFailed(pool string) {
	DefaultMetrics.BatchesFailed.WithLabelValues(pool).Inc()
}

// RecordSyncRun records one sync run with its outcome and duration.
func RecordSyncRun(pool, status string, durationSeconds float64) {
	DefaultMetrics.SyncRunsTotal.WithLabelValues(pool, status).Inc()
	DefaultMetrics.SyncDuration.WithLabelValues(pool).Observe(durationSeconds)
	if status == "ok" {
		DefaultMetrics.LastSuccessfulSync.WithLabelValues(pool).SetToCurrentTime()
	}
}

// RecordHeadBlock updates the observed head block gauge for a pool.
func RecordHeadBlock(pool string, block uint64) {
	DefaultMetrics.HeadBlock.WithLabelValues(pool).Set(float64(block))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordReportGenerated increments the report counter.
func RecordReportGenerated() {
	DefaultMetrics.ReportsGenerated.Inc()
}

// RecordStateBuilt increments the state vector counter.
func RecordStateBuilt() {
	DefaultMetrics.StatesBuilt.Inc()
}
