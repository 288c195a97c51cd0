package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncMetrics holds all Prometheus metrics for the booking sync service.
type SyncMetrics struct {
	TenantResolutions    *prometheus.CounterVec
	EventsPublished      *prometheus.CounterVec
	EventsDelivered      prometheus.Counter
	EventsDropped        *prometheus.CounterVec
	Subscribers          prometheus.Gauge
	InvalidTransitions   prometheus.Counter
	CrossTenantEvents    prometheus.Counter
	DirectoryCacheHits   prometheus.Counter
	DirectoryCacheMisses prometheus.Counter
}

// NewSyncMetrics initializes and registers the Prometheus metrics.
func NewSyncMetrics() *SyncMetrics {
	return &SyncMetrics{
		TenantResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "tenant",
			Name:      "resolutions_total",
			Help:      "Total number of host resolutions by classification.",
		}, []string{"classification"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "sync",
			Name:      "events_published_total",
			Help:      "Total number of booking events published to the bus by type.",
		}, []string{"type"}),
		EventsDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "sync",
			Name:      "events_delivered_total",
			Help:      "Total number of booking events delivered to subscribers.",
		}),
		EventsDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "sync",
			Name:      "events_dropped_total",
			Help:      "Total number of booking events dropped by reason.",
		}, []string{"reason"}), // reason: partition_full, subscriber_evicted, no_tenant
		Subscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "spa_platform",
			Subsystem: "sync",
			Name:      "subscribers_gauge",
			Help:      "Number of currently connected bus subscriptions.",
		}),
		InvalidTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "sync",
			Name:      "invalid_transitions_total",
			Help:      "Status-changed events that violated the booking lifecycle but were applied anyway.",
		}),
		CrossTenantEvents: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "sync",
			Name:      "cross_tenant_events_total",
			Help:      "Events observed outside their tenant partition. Any increment is an invariant violation.",
		}),
		DirectoryCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "tenant",
			Name:      "directory_cache_hits_total",
			Help:      "Total number of tenant directory cache hits.",
		}),
		DirectoryCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "spa_platform",
			Subsystem: "tenant",
			Name:      "directory_cache_misses_total",
			Help:      "Total number of tenant directory cache misses.",
		}),
	}
}
