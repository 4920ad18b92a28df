package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveConversations prometheus.Gauge
	PendingApprovals    prometheus.Gauge
	TurnEvents          *prometheus.CounterVec
	RouterDecisions     *prometheus.CounterVec
	ProviderErrors      *prometheus.CounterVec
	MemoryLosses        prometheus.Counter
	TurnLatency         prometheus.Histogram
	GenerationLatency   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of conversations with a turn in flight.",
		}),
		PendingApprovals: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_approvals",
			Help:      "Number of turns held in the approval gate.",
		}),
		TurnEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_events_total",
			Help:      "Turn lifecycle events by type.",
		}, []string{"event"}),
		RouterDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_decisions_total",
			Help:      "Router decisions by specialist role.",
		}, []string{"role"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		MemoryLosses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_persist_losses_total",
			Help:      "Memory snapshots lost after the persistence retry.",
		}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "End-to-end turn latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Specialist generation call latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 15000, 30000},
		}),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveGenerationLatency(d time.Duration) {
	m.GenerationLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
