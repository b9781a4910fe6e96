package services

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics contains the Prometheus metrics of the discovery and write
// paths. A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	DiscoveryQueriesTotal *prometheus.CounterVec   // Discovery queries by domain and proximity
	DiscoveryResults      *prometheus.HistogramVec // Result set size by domain
	StoreRetriesTotal     *prometheus.CounterVec   // Read retries by operation
	WritesTotal           *prometheus.CounterVec   // Write sequences by operation and outcome
	WriteDuration         *prometheus.HistogramVec // Write sequence latency by operation
	NotificationsTotal    *prometheus.CounterVec   // Notifications created by rule
	NotificationFailures  *prometheus.CounterVec   // Dispatcher failures by stage
}

// NewEngineMetrics creates the engine metrics and registers them on registry
func NewEngineMetrics(registry *prometheus.Registry) (*EngineMetrics, error) {
	m := &EngineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register engine metrics: %w", err)
	}
	return m, nil
}

func (m *EngineMetrics) initMetrics() {
	m.DiscoveryQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_discovery_queries_total",
			Help: "Total number of discovery queries by domain and whether a proximity filter applied",
		},
		[]string{"domain", "proximity"},
	)

	m.DiscoveryResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_discovery_results",
			Help:    "Number of resources returned per discovery query",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
		},
		[]string{"domain"},
	)

	m.StoreRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_store_read_retries_total",
			Help: "Total number of retried store reads by operation",
		},
		[]string{"op"},
	)

	m.WritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_writes_total",
			Help: "Total number of write sequences by first step and outcome",
		},
		[]string{"op", "outcome"}, // outcome: committed, rolled_back
	)

	m.WriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "directory_write_duration_seconds",
			Help:    "Time taken by write sequences",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"op"},
	)

	m.NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_notifications_total",
			Help: "Total number of notifications created by rule",
		},
		[]string{"rule"},
	)

	m.NotificationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_notification_failures_total",
			Help: "Total number of notification dispatch failures by stage",
		},
		[]string{"stage"},
	)
}

// Describe implements prometheus.Collector
func (m *EngineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DiscoveryQueriesTotal.Describe(ch)
	m.DiscoveryResults.Describe(ch)
	m.StoreRetriesTotal.Describe(ch)
	m.WritesTotal.Describe(ch)
	m.WriteDuration.Describe(ch)
	m.NotificationsTotal.Describe(ch)
	m.NotificationFailures.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *EngineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DiscoveryQueriesTotal.Collect(ch)
	m.DiscoveryResults.Collect(ch)
	m.StoreRetriesTotal.Collect(ch)
	m.WritesTotal.Collect(ch)
	m.WriteDuration.Collect(ch)
	m.NotificationsTotal.Collect(ch)
	m.NotificationFailures.Collect(ch)
}

func (m *EngineMetrics) observeDiscovery(domain string, proximity bool, results int) {
	if m == nil {
		return
	}
	m.DiscoveryQueriesTotal.WithLabelValues(domain, fmt.Sprint(proximity)).Inc()
	m.DiscoveryResults.WithLabelValues(domain).Observe(float64(results))
}

func (m *EngineMetrics) storeRetried(op string) {
	if m == nil {
		return
	}
	m.StoreRetriesTotal.WithLabelValues(op).Inc()
}

func (m *EngineMetrics) observeWrite(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(op, outcome).Inc()
	m.WriteDuration.WithLabelValues(op).Observe(d.Seconds())
}

func (m *EngineMetrics) notificationCreated(rule string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(rule).Inc()
}

func (m *EngineMetrics) notificationFailed(stage string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(stage).Inc()
}
