package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

// RunMetrics records per-run measurements. It satisfies press.Recorder.
type RunMetrics struct {
	samples     metric.Int64Counter
	duration    metric.Float64Histogram
	energy      metric.Float64Histogram
	skipped     metric.Int64Counter
	calibration metric.Float64Gauge
}

var _ press.Recorder = (*RunMetrics)(nil)

// NewRunMetrics creates the run instruments on meter.
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	samples, err := meter.Int64Counter(
		"press_samples",
		metric.WithDescription("Samples processed, by status"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"press_sample_duration",
		metric.WithDescription("Time spent processing one sample"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	energy, err := meter.Float64Histogram(
		"press_specific_energy_kwh_per_t",
		metric.WithDescription("Total specific energy of successfully processed samples"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	skipped, err := meter.Int64Counter(
		"press_samples_skipped",
		metric.WithDescription("Samples whose instrument file could not be loaded"),
	)
	if err != nil {
		return nil, err
	}

	calibration, err := meter.Float64Gauge(
		"press_calibration",
		metric.WithDescription("Calibration constants in use, by parameter"),
	)
	if err != nil {
		return nil, err
	}

	return &RunMetrics{
		samples:     samples,
		duration:    duration,
		energy:      energy,
		skipped:     skipped,
		calibration: calibration,
	}, nil
}

// RecordSample implements press.Recorder.
func (m *RunMetrics) RecordSample(ctx context.Context, sample string, totalEnergy float64, d time.Duration, err error) {
	status := attribute.String("status", "ok")
	if err != nil {
		status = attribute.String("status", "failed")
		m.samples.Add(ctx, 1, metric.WithAttributes(
			status,
			attribute.String("error_type", string(apperrors.TypeOf(err))),
		))
	} else {
		m.samples.Add(ctx, 1, metric.WithAttributes(status))
		m.energy.Record(ctx, totalEnergy)
	}
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(status))
}

// RecordSkipped counts samples dropped while loading the dataset.
func (m *RunMetrics) RecordSkipped(ctx context.Context, n int) {
	if n > 0 {
		m.skipped.Add(ctx, int64(n))
	}
}

// RecordCalibration exports the constants the run used.
func (m *RunMetrics) RecordCalibration(ctx context.Context, cal press.Calibration) {
	source := attribute.String("source", string(cal.Source))
	m.calibration.Record(ctx, cal.A, metric.WithAttributes(source, attribute.String("parameter", "a")))
	m.calibration.Record(ctx, cal.B, metric.WithAttributes(source, attribute.String("parameter", "b")))
	if cal.Source == press.SourceFitted {
		m.calibration.Record(ctx, cal.RSquared, metric.WithAttributes(source, attribute.String("parameter", "r_squared")))
	}
}

// WriteMetricsFile writes everything g gathers in the Prometheus text format,
// suitable for the node_exporter textfile collector.
func WriteMetricsFile(path string, g promclient.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := promclient.WriteToTextfile(path, g); err != nil {
		return apperrors.NewStorageError("failed to write metrics file", err).WithContext("path", path)
	}
	return nil
}
