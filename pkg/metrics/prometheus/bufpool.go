// Package prometheus implements bufpool.Metrics on top of the registry in
// pkg/metrics. Import it for its side effect of registering the constructor.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/iobufs/pkg/bufpool"
	"github.com/marmos91/iobufs/pkg/metrics"
)

func init() {
	metrics.RegisterPoolMetricsConstructor(NewPoolMetrics)
}

// poolMetrics is the Prometheus implementation of bufpool.Metrics.
type poolMetrics struct {
	checkouts   *prometheus.CounterVec
	releases    *prometheus.CounterVec
	discards    *prometheus.CounterVec
	downgrades  *prometheus.CounterVec
	queued      *prometheus.GaugeVec
	total       prometheus.Gauge
	usage       *prometheus.GaugeVec
	directBytes prometheus.Gauge
}

// NewPoolMetrics creates pool metrics on the shared registry.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPoolMetrics() bufpool.Metrics {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}
	return newPoolMetrics(reg)
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	return &poolMetrics{
		checkouts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iobufs_pool_checkouts_total",
				Help: "Total number of buffer checkouts by role and result",
			},
			[]string{"role", "result"}, // result: "hit", "miss"
		),
		releases: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iobufs_pool_releases_total",
				Help: "Total number of buffer releases by role and outcome",
			},
			[]string{"role", "outcome"}, // outcome: "pooled", "over_cap", "volatile"
		),
		discards: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iobufs_pool_discards_total",
				Help: "Total number of pooled buffers dropped by reason",
			},
			[]string{"reason"}, // reason: "size_mismatch", "idle"
		),
		downgrades: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "iobufs_pool_direct_downgrades_total",
				Help: "Number of roles switched from direct to heap buffers",
			},
			[]string{"role"},
		),
		queued: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "iobufs_pool_queued_buffers",
				Help: "Buffers waiting in each pool queue",
			},
			[]string{"queue"}, // "header", "body", "other"
		),
		total: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "iobufs_pool_pooled_buffers",
				Help: "Approximate total of pooled buffers",
			},
		),
		usage: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "iobufs_pool_usage_percent",
				Help: "Mean fill percentage of released buffers by role",
			},
			[]string{"role"},
		),
		directBytes: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "iobufs_pool_direct_allocated_bytes",
				Help: "Direct memory charged against the budget",
			},
		),
	}
}

func (m *poolMetrics) RecordCheckout(role string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.checkouts.WithLabelValues(role, result).Inc()
}

func (m *poolMetrics) RecordRelease(role, outcome string) {
	if m == nil {
		return
	}
	m.releases.WithLabelValues(role, outcome).Inc()
}

func (m *poolMetrics) RecordDiscard(reason string) {
	if m == nil {
		return
	}
	m.discards.WithLabelValues(reason).Inc()
}

func (m *poolMetrics) RecordDowngrade(role string) {
	if m == nil {
		return
	}
	m.downgrades.WithLabelValues(role).Inc()
}

func (m *poolMetrics) ObserveCounters(c bufpool.Counters) {
	if m == nil {
		return
	}
	m.queued.WithLabelValues("header").Set(float64(c.Headers))
	m.queued.WithLabelValues("body").Set(float64(c.Bodies))
	m.queued.WithLabelValues("other").Set(float64(c.Others))
	m.total.Set(float64(c.Total))
}

func (m *poolMetrics) ObserveUsage(role string, mean float64) {
	if m == nil {
		return
	}
	m.usage.WithLabelValues(role).Set(mean)
}

func (m *poolMetrics) ObserveDirectBytes(n int64) {
	if m == nil {
		return
	}
	m.directBytes.Set(float64(n))
}
