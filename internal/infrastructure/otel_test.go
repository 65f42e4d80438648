package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/config"
	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

func newTestProviders(t *testing.T, cfg *OTelConfig) *OTelProviders {
	t.Helper()
	prevTP := otel.GetTracerProvider()
	prevMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	providers, err := InitializeOTel(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = providers.Shutdown(context.Background()) })
	return providers
}

func TestInitializeOTel_MetricsOnly(t *testing.T) {
	providers := newTestProviders(t, NewOTelConfig(config.TelemetryConfig{TraceExporter: "none"}))

	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Registry)
}

func TestInitializeOTel_StdoutTracing(t *testing.T) {
	var out bytes.Buffer
	cfg := NewOTelConfig(config.TelemetryConfig{EnableTracing: true, TraceExporter: "stdout"})
	cfg.TraceWriter = &out

	providers := newTestProviders(t, cfg)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "press.sample")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()

	require.NoError(t, providers.TracerProvider.ForceFlush(context.Background()))
	assert.Contains(t, out.String(), `"Name": "press.sample"`)
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	cfg := NewOTelConfig(config.TelemetryConfig{EnableTracing: true, TraceExporter: "zipkin"})
	_, err := InitializeOTel(cfg, nil)
	assert.Error(t, err)
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestRunMetrics(t *testing.T) {
	providers := newTestProviders(t, nil)
	ctx := context.Background()

	m, err := NewRunMetrics(providers.Meter)
	require.NoError(t, err)
	sys, err := NewSystemMetrics(providers.Meter)
	require.NoError(t, err)

	m.RecordSample(ctx, "run01", 0.039, 20*time.Millisecond, nil)
	m.RecordSample(ctx, "run02", 0.041, 30*time.Millisecond, nil)
	m.RecordSample(ctx, "run03", 0, 5*time.Millisecond, apperrors.NewInvalidMassError("abc", errors.New("not a number")))
	m.RecordSkipped(ctx, 2)
	m.RecordSkipped(ctx, 0)
	m.RecordCalibration(ctx, press.Calibration{A: 0.1, B: 1.5, RSquared: 0.99, Source: press.SourceFitted})

	stats := sys.Collect(ctx, time.Now().Add(-time.Second))
	assert.Positive(t, stats.GoRoutines)
	assert.GreaterOrEqual(t, stats.RunDuration, time.Second)

	path := filepath.Join(t.TempDir(), "textfile", "press.prom")
	require.NoError(t, WriteMetricsFile(path, providers.Registry))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "press_samples_total")
	assert.True(t, hasSeries(text, "press_samples_total", `status="ok"`, " 2"))
	assert.True(t, hasSeries(text, "press_samples_total", `status="failed"`, `error_type="INVALID_MASS"`))
	assert.True(t, hasSeries(text, "press_samples_skipped_total", " 2"))
	assert.True(t, hasSeries(text, "press_specific_energy_kwh_per_t_count", " 2"))
	assert.True(t, hasSeries(text, "press_calibration", `parameter="r_squared"`, " 0.99"))
	assert.Contains(t, text, "press_sample_duration_seconds_bucket")
	assert.Contains(t, text, "press_run_duration_seconds")
	assert.Contains(t, text, "process_goroutines")
}

func TestRunMetrics_DefaultCalibrationHasNoRSquared(t *testing.T) {
	providers := newTestProviders(t, nil)

	m, err := NewRunMetrics(providers.Meter)
	require.NoError(t, err)
	m.RecordCalibration(context.Background(), press.DefaultCalibration())

	path := filepath.Join(t.TempDir(), "press.prom")
	require.NoError(t, WriteMetricsFile(path, providers.Registry))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.True(t, hasSeries(string(data), "press_calibration", `parameter="a"`, `source="default"`))
	assert.NotContains(t, string(data), "r_squared")
}

// hasSeries reports whether one exposition line starts with name and
// contains every fragment.
func hasSeries(text, name string, fragments ...string) bool {
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, name+"{") && !strings.HasPrefix(line, name+" ") {
			continue
		}
		ok := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
