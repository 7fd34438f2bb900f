package metrics

import (
	"runtime"
	"strconv"
	"time"
)

// RecordRun records a finished clustering run
func (r *Registry) RecordRun(status string, duration time.Duration) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
}

// RecordResult publishes the outcome of a successful run
func (r *Registry) RecordResult(communities uint64, modularity float64) {
	r.Communities.Set(float64(communities))
	r.FinalModularity.Set(modularity)
}

// StartRun resets the per-run gauges before a new run
func (r *Registry) StartRun(nodes uint64) {
	r.InputNodes.Set(float64(nodes))
	r.LevelModularity.Reset()
	r.PeakTrackedBytes.Set(0)
}

// RecordLevel records a completed level
func (r *Registry) RecordLevel(level, rounds int, modularity float64, duration time.Duration) {
	r.LevelsTotal.Inc()
	r.LevelDuration.Observe(duration.Seconds())
	r.RoundsTotal.Add(float64(rounds))
	r.RoundsPerLevel.Observe(float64(rounds))
	r.LevelModularity.WithLabelValues(strconv.Itoa(level)).Set(modularity)
}

// RecordPeakBytes publishes the highest tracked memory of a run
func (r *Registry) RecordPeakBytes(peak int64) {
	r.PeakTrackedBytes.Set(float64(peak))
}

// UpdateSystemMetrics refreshes uptime, goroutine and memory gauges
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(mem.Alloc))
	r.MemorySysBytes.Set(float64(mem.Sys))
}
