// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"math/big"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"token-ledger/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Execution metrics
	CallsTotal   *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
	CommitErrors prometheus.Counter

	// Query metrics
	QueriesTotal *prometheus.CounterVec
	GateFailures *prometheus.CounterVec

	// Ledger state
	TotalSupply  prometheus.Gauge
	LastTxID     prometheus.Gauge
	BlockHeight  prometheus.Gauge
	StatusChange *prometheus.CounterVec

	// Delivery metrics
	RelayedMessages *prometheus.CounterVec
	ArchivedTxs     prometheus.Counter
	ArchiveErrors   prometheus.Counter
	ReserveLatency  prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "token_ledger"
	}

	return &Metrics{
		CallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "calls_total",
			Help:      "Total number of executed calls by operation and outcome",
		}, []string{"operation", "status"}),
		CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "call_duration_seconds",
			Help:      "Execute call duration in seconds, commit included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CommitErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contract",
			Name:      "commit_errors_total",
			Help:      "Total number of failed backend commits",
		}),

		QueriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "queries_total",
			Help:      "Total number of queries by name and outcome",
		}, []string{"query", "status"}),
		GateFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "gate_failures_total",
			Help:      "Total number of rejected viewing key checks",
		}, []string{"query"}),

		TotalSupply: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_supply",
			Help:      "Total token supply after the last commit",
		}),
		LastTxID: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "last_tx_id",
			Help:      "Highest transaction id recorded",
		}),
		BlockHeight: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "block_height",
			Help:      "Block height of the last executed call",
		}),
		StatusChange: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "status_changes_total",
			Help:      "Total number of contract status changes by new status",
		}, []string{"status"}),

		RelayedMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Total number of outbound messages handed to the relay",
		}, []string{"kind", "status"}),
		ArchivedTxs: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "txs_total",
			Help:      "Total number of transaction records archived",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of failed archive inserts",
		}),
		ReserveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bank",
			Name:      "reserve_query_latency_seconds",
			Help:      "Reserve balance query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordCall records one executed call.
func RecordCall(operation string, d time.Duration, err error) {
	DefaultMetrics.CallsTotal.WithLabelValues(operation, outcome(err)).Inc()
	DefaultMetrics.CallDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCommitError increments the failed commit counter.
func RecordCommitError() {
	DefaultMetrics.CommitErrors.Inc()
}

// RecordQuery records one answered query.
func RecordQuery(query string, err error) {
	DefaultMetrics.QueriesTotal.WithLabelValues(query, outcome(err)).Inc()
}

// RecordGateFailure records a rejected viewing key.
func RecordGateFailure(query string) {
	DefaultMetrics.GateFailures.WithLabelValues(query).Inc()
}

// UpdateLedger sets the ledger state gauges after a commit.
// The supply gauge is a float approximation of the u128 value. A zero
// lastTxID leaves the id gauge unchanged.
func UpdateLedger(supply domain.Amount, lastTxID, height uint64) {
	f, _ := new(big.Float).SetInt(supply.Big()).Float64()
	DefaultMetrics.TotalSupply.Set(f)
	if lastTxID > 0 {
		DefaultMetrics.LastTxID.Set(float64(lastTxID))
	}
	DefaultMetrics.BlockHeight.Set(float64(height))
}

// RecordStatusChange records a contract status transition.
func RecordStatusChange(status domain.ContractStatus) {
	DefaultMetrics.StatusChange.WithLabelValues(status.String()).Inc()
}

// RecordRelayed records outbound messages handed to the relay.
func RecordRelayed(msgs domain.Messages, err error) {
	for _, m := range msgs {
		DefaultMetrics.RelayedMessages.WithLabelValues(m.MessageKind(), outcome(err)).Inc()
	}
}

// RecordArchive records an archive insert of n records.
func RecordArchive(n int, err error) {
	if err != nil {
		DefaultMetrics.ArchiveErrors.Inc()
		return
	}
	DefaultMetrics.ArchivedTxs.Add(float64(n))
}

// RecordReserveLatency records reserve balance query latency.
func RecordReserveLatency(d time.Duration) {
	DefaultMetrics.ReserveLatency.Observe(d.Seconds())
}
