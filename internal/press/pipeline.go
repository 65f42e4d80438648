package press

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

const tracerName = "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"

// Recorder receives per-sample measurements. Implementations must be safe
// for concurrent use.
type Recorder interface {
	RecordSample(ctx context.Context, sample string, totalEnergy float64, duration time.Duration, err error)
}

// Outcome is the result of one sample in a batch. Exactly one of Result and
// Err is set.
type Outcome struct {
	Sample string
	Result *Result
	Err    error
}

// Processor runs the correction chain for samples that share one
// calibration.
type Processor struct {
	cal      Calibration
	energy   EnergyOptions
	area     float64
	workers  int
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers bounds how many samples are processed at once.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithEnergyOptions(opts EnergyOptions) Option {
	return func(p *Processor) { p.energy = opts }
}

// WithPistonDiameter sets the piston diameter in mm used for pressure.
func WithPistonDiameter(mm float64) Option {
	return func(p *Processor) { p.area = PistonArea(mm) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// NewProcessor creates a processor for cal. Without options it processes
// sequentially with the standard piston and legacy energy rounding.
func NewProcessor(cal Calibration, opts ...Option) *Processor {
	p := &Processor{
		cal:     cal,
		energy:  DefaultEnergyOptions(),
		area:    PistonArea(PistonDiameterMM),
		workers: 1,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Calibration returns the calibration every sample is corrected with.
func (p *Processor) Calibration() Calibration {
	return p.cal
}

// ProcessSample corrects, integrates and summarises one sample.
func (p *Processor) ProcessSample(ctx context.Context, s Sample) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "press.ProcessSample",
		trace.WithAttributes(
			attribute.String("sample", s.Name),
			attribute.Int("points", s.Len()),
		))
	defer span.End()

	start := time.Now()
	res, err := p.process(s)
	duration := time.Since(start)

	if p.recorder != nil {
		total := 0.0
		if res != nil {
			total = res.Energy.Total
		}
		p.recorder.RecordSample(ctx, s.Name, total, duration, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.ErrorContext(ctx, "sample processing failed",
			slog.String("sample", s.Name),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("total_specific_energy", res.Energy.Total),
		attribute.Float64("peak_pressure", res.Metrics.PeakPressure),
	)
	p.logger.InfoContext(ctx, "sample processed",
		slog.String("sample", s.Name),
		slog.Float64("total_specific_energy", res.Energy.Total),
		slog.Float64("peak_pressure", res.Metrics.PeakPressure),
		slog.Float64("compression_ratio", res.Metrics.CompressionRatio),
		slog.Duration("duration", duration))
	return res, nil
}

func (p *Processor) process(s Sample) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, withSample(err, s.Name)
	}
	mass, err := ParseMass(s.Mass)
	if err != nil {
		return nil, withSample(err, s.Name)
	}

	curve, err := CorrectDisplacement(Absolute(s.Force), Absolute(s.Displacement), p.cal)
	if err != nil {
		return nil, withSample(err, s.Name)
	}
	work, err := IntegrateWork(curve.Force, curve.Displacement)
	if err != nil {
		return nil, withSample(err, s.Name)
	}
	energy, err := ConvertEnergy(work, mass, p.energy)
	if err != nil {
		return nil, withSample(err, s.Name)
	}

	pressure, err := PeakPressure(curve.Force, p.area)
	if err != nil {
		return nil, withSample(err, s.Name)
	}
	ratio, err := CompressionRatio(s.InitialDepth, s.FinalDepth)
	if err != nil {
		return nil, withSample(err, s.Name)
	}

	return &Result{
		Sample: s.Name,
		Mass:   mass,
		Curve:  curve,
		Work:   work,
		Energy: energy,
		Metrics: DerivedMetrics{
			PeakPressure:     pressure,
			CompressionRatio: ratio,
		},
	}, nil
}

// ProcessAll processes every sample, at most p.workers at a time, and
// returns one Outcome per sample in input order. A failing sample does not
// stop the others; the returned error is non-nil only when ctx ends first.
func (p *Processor) ProcessAll(ctx context.Context, samples []Sample) ([]Outcome, error) {
	outcomes := make([]Outcome, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range samples {
		i, s := i, samples[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Sample: s.Name, Err: err}
				return err
			}
			res, err := p.ProcessSample(gctx, s)
			outcomes[i] = Outcome{Sample: s.Name, Result: res, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func withSample(err error, name string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		appErr.WithContext("sample", name)
	}
	return err
}
