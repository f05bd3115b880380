// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// Ingestion metrics
	SlotsProcessed        *prometheus.CounterVec
	TransactionsProcessed *prometheus.CounterVec
	Failovers             *prometheus.CounterVec
	ConsumerDrops         *prometheus.CounterVec
	HighestSlotSeen       prometheus.Gauge
	ActiveSource          prometheus.Gauge

	// Storage and cache metrics
	StorageErrors *prometheus.CounterVec
	CacheRequests *prometheus.CounterVec
	L1Entries     prometheus.Gauge

	// Watcher metrics
	AccountChanges     prometheus.Counter
	AccountFetchErrors prometheus.Counter

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_indexer"
	}

	return &Metrics{
		SlotsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "slots_processed_total",
			Help:      "Slot records handled by the pipeline, by source",
		}, []string{"source"}),
		TransactionsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transactions_processed_total",
			Help:      "Transaction details handled by the pipeline, by source",
		}, []string{"source"}),
		Failovers: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "failovers_total",
			Help:      "Switches from streaming to polling, by cause",
		}, []string{"cause"}),
		ConsumerDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "consumer_drops_total",
			Help:      "Events not delivered because the consumer was full or gone",
		}, []string{"kind"}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_slot_seen",
			Help:      "Highest slot number observed",
		}),
		ActiveSource: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "active_source",
			Help:      "1 while streaming is active, 0 while polling",
		}),

		StorageErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Persistent store failures, by operation",
		}, []string{"op"}),
		CacheRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups, by tier and result",
		}, []string{"tier", "result"}),
		L1Entries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "l1_entries",
			Help:      "Slots currently held in the hot slot index",
		}),

		AccountChanges: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "account_changes_total",
			Help:      "Detected account changes",
		}),
		AccountFetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watcher",
			Name:      "account_fetch_errors_total",
			Help:      "Failed account fetches",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewRouter returns a router serving /metrics and /healthz.
func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	return r
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSlot counts a processed slot and tracks the highest number seen.
func RecordSlot(source string, number uint64) {
	DefaultMetrics.SlotsProcessed.WithLabelValues(source).Inc()
	DefaultMetrics.HighestSlotSeen.Set(float64(number))
}

// RecordTransaction counts a processed transaction.
func RecordTransaction(source string) {
	DefaultMetrics.TransactionsProcessed.WithLabelValues(source).Inc()
}

// RecordFailover counts a switch to polling.
func RecordFailover(cause string) {
	DefaultMetrics.Failovers.WithLabelValues(cause).Inc()
}

// RecordConsumerDrop counts an event the consumer did not receive.
func RecordConsumerDrop(kind string) {
	DefaultMetrics.ConsumerDrops.WithLabelValues(kind).Inc()
}

// SetActiveSource sets the active source gauge.
func SetActiveSource(streaming bool) {
	if streaming {
		DefaultMetrics.ActiveSource.Set(1)
		return
	}
	DefaultMetrics.ActiveSource.Set(0)
}

// RecordStorageError counts a failed store operation.
func RecordStorageError(op string) {
	DefaultMetrics.StorageErrors.WithLabelValues(op).Inc()
}

// RecordCacheLookup counts a hit or miss on a cache tier.
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheRequests.WithLabelValues(tier, result).Inc()
}

// SetL1Entries updates the hot slot index size.
func SetL1Entries(n int) {
	DefaultMetrics.L1Entries.Set(float64(n))
}

// RecordAccountChange counts a detected account change.
func RecordAccountChange() {
	DefaultMetrics.AccountChanges.Inc()
}

// RecordAccountFetchError counts a failed account fetch.
func RecordAccountFetchError() {
	DefaultMetrics.AccountFetchErrors.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}
