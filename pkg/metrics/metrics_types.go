// Package metrics exposes prometheus metrics for clustering runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the status label of RunsTotal
const (
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Registry holds all metrics for the application
type Registry struct {
	// Run Metrics
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	InputNodes      prometheus.Gauge
	FinalModularity prometheus.Gauge
	Communities     prometheus.Gauge

	// Level Metrics
	LevelsTotal     prometheus.Counter
	LevelDuration   prometheus.Histogram
	RoundsTotal     prometheus.Counter
	RoundsPerLevel  prometheus.Histogram
	LevelModularity *prometheus.GaugeVec

	// Memory Metrics
	TrackedBytes     prometheus.Gauge
	PeakTrackedBytes prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initRunMetrics()
	r.initLevelMetrics()
	r.initMemoryMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
