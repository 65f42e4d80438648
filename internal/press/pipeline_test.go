package press

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/shared/testutil"
)

type fakeRecorder struct {
	mu       sync.Mutex
	ok       []string
	failed   []string
	energies map[string]float64
}

func (r *fakeRecorder) RecordSample(_ context.Context, sample string, total float64, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed = append(r.failed, sample)
		return
	}
	if r.energies == nil {
		r.energies = map[string]float64{}
	}
	r.ok = append(r.ok, sample)
	r.energies[sample] = total
}

func workedSample() Sample {
	return Sample{
		Name:         "run01",
		Time:         []float64{0, 1, 2},
		Force:        []float64{0, -10, -20},
		Displacement: []float64{0, 1.2, 2.5},
		Mass:         "100",
		InitialDepth: 10,
		FinalDepth:   6,
	}
}

func TestProcessor_ProcessSample(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	p := NewProcessor(Calibration{A: 0.05, B: 1.3, Source: SourceFitted}, WithLogger(logger))

	res, err := p.ProcessSample(context.Background(), workedSample())
	require.NoError(t, err)

	assert.Equal(t, "run01", res.Sample)
	assert.Equal(t, 100.0, res.Mass)
	assert.Equal(t, []float64{0, 10, 20}, res.Curve.Force)

	assert.InDelta(t, 0.0, res.Curve.Displacement[0], 1e-15)
	assert.InEpsilon(t, 0.2023688425155601, res.Curve.Displacement[1], 1e-6)
	assert.InEpsilon(t, 0.04354394776841852, res.Curve.Displacement[2], 1e-6)

	require.Len(t, res.Work, 3)
	assert.Equal(t, 0.0, res.Work[0])
	assert.InEpsilon(t, 1.0118442125778004, res.Work[1], 1e-6)
	assert.InEpsilon(t, -1.3705292086293233, res.Work[2], 1e-6)

	require.Len(t, res.Energy.Specific, 3)
	assert.InEpsilon(t, 0.002810678368271668, res.Energy.Specific[1], 1e-6)
	assert.InEpsilon(t, -0.0038070255795258977, res.Energy.Specific[2], 1e-6)
	assert.InEpsilon(t, -0.0038055555555555555, res.Energy.Total, 1e-9)

	assert.InEpsilon(t, 3.4430490663471143, res.Metrics.PeakPressure, 1e-9)
	assert.InDelta(t, 0.4, res.Metrics.CompressionRatio, 1e-12)

	testutil.AssertLogged(t, logs, slog.LevelInfo, "sample processed")
	testutil.AssertNoErrors(t, logs)
}

func TestProcessor_Options(t *testing.T) {
	p := NewProcessor(DefaultCalibration(),
		WithEnergyOptions(EnergyOptions{ConversionFactor: 3.6}),
		WithPistonDiameter(100),
		WithWorkers(0),
		WithLogger(nil),
		WithTracer(nil),
	)

	assert.Equal(t, 1, p.workers)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.tracer)
	assert.Equal(t, DefaultCalibration(), p.Calibration())

	s := workedSample()
	res, err := p.ProcessSample(context.Background(), s)
	require.NoError(t, err)
	assert.InEpsilon(t, 20000/PistonArea(100), res.Metrics.PeakPressure, 1e-12)
	assert.Equal(t, res.Energy.Specific[2], res.Energy.Total)
}

func TestProcessor_ProcessSample_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Sample)
		errType apperrors.ErrorType
	}{
		{
			name:    "zero mass",
			mutate:  func(s *Sample) { s.Mass = 0 },
			errType: apperrors.ErrTypeInvalidMass,
		},
		{
			name:    "unequal channels",
			mutate:  func(s *Sample) { s.Displacement = s.Displacement[:2] },
			errType: apperrors.ErrTypeDimensionMismatch,
		},
		{
			name:    "zero initial depth",
			mutate:  func(s *Sample) { s.InitialDepth = 0 },
			errType: apperrors.ErrTypeDivisionByZero,
		},
		{
			name:    "time not increasing",
			mutate:  func(s *Sample) { s.Time = []float64{0, 2, 2} },
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "empty sample",
			mutate: func(s *Sample) {
				s.Time, s.Force, s.Displacement = nil, nil, nil
			},
			errType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			rec := &fakeRecorder{}
			p := NewProcessor(DefaultCalibration(), WithLogger(logger), WithRecorder(rec))

			s := workedSample()
			tt.mutate(&s)

			res, err := p.ProcessSample(context.Background(), s)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "run01", appErr.Context["sample"])

			assert.Equal(t, []string{"run01"}, rec.failed)
			testutil.AssertLogged(t, logs, slog.LevelError, "sample processing failed")
		})
	}
}

func TestProcessor_ProcessAll(t *testing.T) {
	samples := make([]Sample, 0, 6)
	for i, name := range []string{"a", "b", "c", "d", "e", "f"} {
		s := workedSample()
		s.Name = name
		s.Mass = float64(50 * (i + 1))
		samples = append(samples, s)
	}
	samples[2].Mass = "not weighed"
	samples[4].InitialDepth = 0

	for _, workers := range []int{1, 3, 8} {
		rec := &fakeRecorder{}
		p := NewProcessor(Calibration{A: 0.05, B: 1.3},
			WithWorkers(workers),
			WithRecorder(rec),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

		outcomes, err := p.ProcessAll(context.Background(), samples)
		require.NoError(t, err)
		require.Len(t, outcomes, len(samples))

		for i, o := range outcomes {
			assert.Equal(t, samples[i].Name, o.Sample)
			switch i {
			case 2:
				assert.True(t, apperrors.IsType(o.Err, apperrors.ErrTypeInvalidMass))
				assert.Nil(t, o.Result)
			case 4:
				assert.True(t, apperrors.IsType(o.Err, apperrors.ErrTypeDivisionByZero))
				assert.Nil(t, o.Result)
			default:
				require.NoError(t, o.Err)
				require.NotNil(t, o.Result)
				assert.Equal(t, samples[i].Name, o.Result.Sample)
			}
		}

		assert.Len(t, rec.ok, 4, "workers=%d", workers)
		assert.ElementsMatch(t, []string{"c", "e"}, rec.failed)
		// Specific energy scales with 1/mass.
		assert.InEpsilon(t, outcomes[0].Result.Energy.Specific[1]/2, outcomes[1].Result.Energy.Specific[1], 1e-12)
	}
}

func TestProcessor_ProcessAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(DefaultCalibration(), WithWorkers(2), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	outcomes, err := p.ProcessAll(ctx, []Sample{workedSample(), workedSample()})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.Nil(t, o.Result)
	}
}

func TestResolveCalibration(t *testing.T) {
	t.Run("no blank uses defaults", func(t *testing.T) {
		cal, err := ResolveCalibration(nil, Calibration{A: 0.01, B: 0.5, RSquared: 0.3}, nil)
		require.NoError(t, err)
		assert.Equal(t, Calibration{A: 0.01, B: 0.5, Source: SourceDefault}, cal)
	})

	t.Run("blank is fitted on absolute values", func(t *testing.T) {
		blank := &Sample{
			Name:         "blank",
			Force:        []float64{-1, -2, -3},
			Displacement: []float64{-0.1, -0.3, -0.55},
		}
		cal, err := ResolveCalibration(blank, DefaultCalibration(), &Fitter{})
		require.NoError(t, err)
		assert.Equal(t, SourceFitted, cal.Source)
		assert.InDelta(t, 0.1032, cal.A, 1e-3)
		assert.InDelta(t, 1.5246, cal.B, 1e-3)
	})

	t.Run("degenerate blank is not replaced by defaults", func(t *testing.T) {
		blank := &Sample{Force: []float64{1, 2}, Displacement: []float64{0.2, 0.2}}
		_, err := ResolveCalibration(blank, DefaultCalibration(), nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeFit))
	})

	t.Run("blank channel mismatch", func(t *testing.T) {
		blank := &Sample{Force: []float64{1, 2}, Displacement: []float64{0.2}}
		_, err := ResolveCalibration(blank, DefaultCalibration(), nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDimensionMismatch))
	})
}
