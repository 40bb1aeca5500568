package metrics

import (
	"github.com/marmos91/iobufs/pkg/bufpool"
)

// NewPoolMetrics creates a Prometheus-backed bufpool.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or if
// pkg/metrics/prometheus was not imported. Passing nil to bufpool.Config
// disables pool metrics with zero overhead.
//
// Example usage:
//
//	import _ "github.com/marmos91/iobufs/pkg/metrics/prometheus"
//
//	metrics.InitRegistry()
//	pool := bufpool.New(&bufpool.Config{Metrics: metrics.NewPoolMetrics()})
func NewPoolMetrics() bufpool.Metrics {
	if !IsEnabled() || newPrometheusPoolMetrics == nil {
		return nil
	}
	return newPrometheusPoolMetrics()
}

// newPrometheusPoolMetrics is set by pkg/metrics/prometheus. The
// indirection keeps this package free of the implementation import.
var newPrometheusPoolMetrics func() bufpool.Metrics

// RegisterPoolMetricsConstructor registers the Prometheus pool metrics
// constructor. Called from pkg/metrics/prometheus during initialization.
func RegisterPoolMetricsConstructor(constructor func() bufpool.Metrics) {
	newPrometheusPoolMetrics = constructor
}
