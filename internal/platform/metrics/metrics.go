package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	CoherenceApplied   *prometheus.CounterVec
	CoherencePublished *prometheus.CounterVec
	CacheRefreshFails  prometheus.Counter
	CachedEvents       prometheus.Gauge
	WorkerRestarts     prometheus.Counter
	LedgerOperations   *prometheus.CounterVec
	LedgerDuration     *prometheus.HistogramVec
	OutboxPublished    prometheus.Counter
}

// New creates and registers all metrics on reg; nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CoherenceApplied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashless_coherence_messages_applied_total",
			Help: "Coherence messages applied to a worker cache, by kind",
		}, []string{"kind"}),
		CoherencePublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashless_coherence_messages_published_total",
			Help: "Coherence messages sent to the relay, by kind",
		}, []string{"kind"}),
		CacheRefreshFails: f.NewCounter(prometheus.CounterOpts{
			Name: "cashless_cache_refresh_failures_total",
			Help: "Cache refreshes that failed and took a worker down",
		}),
		CachedEvents: f.NewGauge(prometheus.GaugeOpts{
			Name: "cashless_cache_events",
			Help: "Active events mirrored by the most recently populated cache",
		}),
		WorkerRestarts: f.NewCounter(prometheus.CounterOpts{
			Name: "cashless_worker_restarts_total",
			Help: "Workers respawned by the supervisor after a fatal cache error",
		}),
		LedgerOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cashless_ledger_operations_total",
			Help: "Ledger operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		LedgerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cashless_ledger_operation_duration_ms",
			Help:    "Latency of ledger operations in milliseconds",
			Buckets: []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500},
		}, []string{"operation"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "cashless_outbox_published_total",
			Help: "Ledger outbox entries published to Kafka",
		}),
	}
}

// ObserveLedger records one ledger operation with its outcome.
func (m *Metrics) ObserveLedger(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(operation, outcome).Inc()
	m.LedgerDuration.WithLabelValues(operation).Observe(float64(time.Since(started).Microseconds()) / 1000.0)
}

func (m *Metrics) IncrementApplied(kind string) {
	if m == nil {
		return
	}
	m.CoherenceApplied.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPublished(kind string) {
	if m == nil {
		return
	}
	m.CoherencePublished.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementRefreshFailures() {
	if m == nil {
		return
	}
	m.CacheRefreshFails.Inc()
}

func (m *Metrics) IncrementWorkerRestarts() {
	if m == nil {
		return
	}
	m.WorkerRestarts.Inc()
}

func (m *Metrics) SetCachedEvents(n int) {
	if m == nil {
		return
	}
	m.CachedEvents.Set(float64(n))
}

func (m *Metrics) AddOutboxPublished(n int) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(n))
}
