package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()

	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.RunsTotal == nil {
		t.Error("RunsTotal not initialized")
	}
	if r.LevelModularity == nil {
		t.Error("LevelModularity not initialized")
	}
	if r.TrackedBytes == nil {
		t.Error("TrackedBytes not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordRun(t *testing.T) {
	r := NewRegistry()

	r.RecordRun(StatusSuccess, 10*time.Millisecond)
	r.RecordRun(StatusSuccess, 20*time.Millisecond)
	r.RecordRun(StatusCancelled, 5*time.Millisecond)

	success, err := r.RunsTotal.GetMetricWithLabelValues(StatusSuccess)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, success); got != 2 {
		t.Errorf("Success counter = %v, want 2", got)
	}

	cancelled, err := r.RunsTotal.GetMetricWithLabelValues(StatusCancelled)
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := counterValue(t, cancelled); got != 1 {
		t.Errorf("Cancelled counter = %v, want 1", got)
	}

	var metric dto.Metric
	if err := r.RunDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("Run duration samples = %d, want 3", metric.Histogram.GetSampleCount())
	}
}

func TestRecordLevel(t *testing.T) {
	r := NewRegistry()
	r.StartRun(15)

	r.RecordLevel(0, 3, 0.25, time.Millisecond)
	r.RecordLevel(1, 2, 0.38, time.Millisecond)

	if got := counterValue(t, r.LevelsTotal); got != 2 {
		t.Errorf("Levels = %v, want 2", got)
	}
	if got := counterValue(t, r.RoundsTotal); got != 5 {
		t.Errorf("Rounds = %v, want 5", got)
	}
	if got := gaugeValue(t, r.InputNodes); got != 15 {
		t.Errorf("Input nodes = %v, want 15", got)
	}

	level1, err := r.LevelModularity.GetMetricWithLabelValues("1")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}
	if got := gaugeValue(t, level1); got != 0.38 {
		t.Errorf("Level 1 modularity = %v, want 0.38", got)
	}

	// a new run drops the per-level gauges of the previous one
	r.StartRun(4)
	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "louvain_level_modularity" && len(mf.GetMetric()) != 0 {
			t.Errorf("Expected level modularity to be reset, got %d series", len(mf.GetMetric()))
		}
	}
}

func TestRecordResultAndMemory(t *testing.T) {
	r := NewRegistry()

	r.RecordResult(4, 0.42)
	r.TrackedBytes.Set(2048)
	r.RecordPeakBytes(4096)

	if got := gaugeValue(t, r.Communities); got != 4 {
		t.Errorf("Communities = %v, want 4", got)
	}
	if got := gaugeValue(t, r.FinalModularity); got != 0.42 {
		t.Errorf("Final modularity = %v, want 0.42", got)
	}
	if got := gaugeValue(t, r.PeakTrackedBytes); got != 4096 {
		t.Errorf("Peak bytes = %v, want 4096", got)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if got := gaugeValue(t, r.UptimeSeconds); got < 60 {
		t.Errorf("Uptime = %v, want >= 60", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("Goroutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.MemoryAllocBytes); got <= 0 {
		t.Errorf("Alloc bytes = %v, want > 0", got)
	}
}

func TestMetricNamesArePrefixed(t *testing.T) {
	r := NewRegistry()
	r.RecordRun(StatusFailed, time.Millisecond)
	r.RecordLevel(0, 1, 0.1, time.Millisecond)

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("Expected gathered metric families")
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "louvain_") {
			t.Errorf("Metric %q is not prefixed", mf.GetName())
		}
	}
}
