package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initRunMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "louvain_runs_total",
			Help: "Total number of clustering runs by outcome",
		},
		[]string{"status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_run_duration_seconds",
			Help:    "Duration of clustering runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4.4min
		},
	)

	r.InputNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_input_nodes",
			Help: "Node count of the most recent input graph",
		},
	)

	r.FinalModularity = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_final_modularity",
			Help: "Modularity of the most recent successful run",
		},
	)

	r.Communities = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_communities",
			Help: "Number of communities found by the most recent successful run",
		},
	)
}

func (r *Registry) initLevelMetrics() {
	r.LevelsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "louvain_levels_total",
			Help: "Total number of completed clustering levels",
		},
	)

	r.LevelDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_level_duration_seconds",
			Help:    "Duration of a single clustering level in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
	)

	r.RoundsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "louvain_rounds_total",
			Help: "Total number of local search rounds",
		},
	)

	r.RoundsPerLevel = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "louvain_rounds_per_level",
			Help:    "Local search rounds executed per level",
			Buckets: prometheus.LinearBuckets(1, 1, 20),
		},
	)

	r.LevelModularity = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "louvain_level_modularity",
			Help: "Modularity reached at each level of the most recent run",
		},
		[]string{"level"},
	)
}

func (r *Registry) initMemoryMetrics() {
	r.TrackedBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_tracked_bytes",
			Help: "Bytes currently held by level arrays and coarse graphs",
		},
	)

	r.PeakTrackedBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "louvain_peak_tracked_bytes",
			Help: "Highest tracked byte count of the most recent run",
		},
	)
}
