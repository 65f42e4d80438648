package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records a process snapshot at the end of a run.
type SystemMetrics struct {
	goRoutines  metric.Int64Gauge
	memoryUsage metric.Int64Gauge
	memorySys   metric.Int64Gauge
	runDuration metric.Float64Gauge
}

// SystemStats is the snapshot taken by Collect.
type SystemStats struct {
	GoRoutines   int64
	MemoryUsage  int64
	MemorySystem int64
	GCCount      uint32
	RunDuration  time.Duration
}

// NewSystemMetrics creates the snapshot gauges on meter.
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"process_goroutines",
		metric.WithDescription("Number of goroutines at the end of the run"),
	)
	if err != nil {
		return nil, err
	}

	memoryUsage, err := meter.Int64Gauge(
		"process_heap_alloc",
		metric.WithDescription("Heap bytes in use at the end of the run"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySys, err := meter.Int64Gauge(
		"process_memory_sys",
		metric.WithDescription("Memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Gauge(
		"press_run_duration",
		metric.WithDescription("Wall time of the processing run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		goRoutines:  goRoutines,
		memoryUsage: memoryUsage,
		memorySys:   memorySys,
		runDuration: runDuration,
	}, nil
}

// Collect reads the runtime statistics and records them.
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := &SystemStats{
		GoRoutines:   int64(runtime.NumGoroutine()),
		MemoryUsage:  int64(memStats.Alloc),
		MemorySystem: int64(memStats.Sys),
		GCCount:      memStats.NumGC,
		RunDuration:  time.Since(startTime),
	}

	sm.goRoutines.Record(ctx, stats.GoRoutines)
	sm.memoryUsage.Record(ctx, stats.MemoryUsage)
	sm.memorySys.Record(ctx, stats.MemorySystem)
	sm.runDuration.Record(ctx, stats.RunDuration.Seconds())

	return stats
}
