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
	// Ingest metrics
	FramesSeen    prometheus.Counter
	EventsDecoded prometheus.Counter
	DecodeErrors  prometheus.Counter

	// Filter and admission metrics
	FilterRejects *prometheus.CounterVec
	RateLimited   prometheus.Counter
	Deduplicated  prometheus.Counter

	// Delivery metrics
	AlertsDispatched *prometheus.CounterVec
	DeliveryFailures *prometheus.CounterVec
	DeliveryAttempts *prometheus.CounterVec
	DeliveryLatency  *prometheus.HistogramVec

	// Session metrics
	SessionConnects   prometheus.Counter
	SessionReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pumpfun_alerts"
	}

	return &Metrics{
		FramesSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "frames_seen_total",
			Help:      "Total number of log notifications received",
		}),
		EventsDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_decoded_total",
			Help:      "Total number of creation events decoded",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed create payloads dropped",
		}),

		FilterRejects: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "rejects_total",
			Help:      "Total number of events rejected by filtering, by reason",
		}, []string{"reason"}),
		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "rate_limited_total",
			Help:      "Total number of passing events dropped by the rate limiter",
		}),
		Deduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "deduplicated_total",
			Help:      "Total number of events suppressed by the recency dedup set",
		}),

		AlertsDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "alerts_dispatched_total",
			Help:      "Total number of successfully delivered alerts, by channel",
		}, []string{"channel"}),
		DeliveryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "failures_total",
			Help:      "Total number of exhausted or permanent delivery failures, by channel",
		}, []string{"channel"}),
		DeliveryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Total number of delivery attempts, by channel",
		}, []string{"channel"}),
		DeliveryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "latency_seconds",
			Help:      "Delivery attempt latency, by channel",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),

		SessionConnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "connects_total",
			Help:      "Total number of successful subscriptions",
		}),
		SessionReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Total number of reconnect cycles",
		}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
