package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/config"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/dataprocessing"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/exporter"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/infrastructure"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/validation"
)

const summaryFile = "summary.csv"

func loadConfig(cmd *cobra.Command, o options) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		if o.workers <= 0 {
			return nil, fmt.Errorf("--workers must be positive, got %d", o.workers)
		}
		cfg.Processing.Workers = o.workers
	}
	if o.metricsFile != "" {
		cfg.Telemetry.MetricsFile = o.metricsFile
	}
	if o.noLegacyRounding {
		cfg.Press.LegacyRounding = false
	}
	return cfg, nil
}

func defaultCalibration(cfg *config.Config) press.Calibration {
	return press.Calibration{
		A:      cfg.Calibration.DefaultA,
		B:      cfg.Calibration.DefaultB,
		Source: press.SourceDefault,
	}
}

func newFitter(cfg *config.Config) *press.Fitter {
	return &press.Fitter{
		MaxIterations: cfg.Calibration.MaxIterations,
		Tolerance:     cfg.Calibration.Tolerance,
		InitialA:      cfg.Calibration.InitialA,
		InitialB:      cfg.Calibration.InitialB,
	}
}

func runProcess(cmd *cobra.Command, o options) error {
	start := time.Now()

	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}

	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	ctx := infrastructure.EnsureTraceID(cmd.Context())
	logger.InfoContext(ctx, "processing started",
		slog.String("workbook", o.workbook),
		slog.Int("workers", cfg.Processing.Workers),
		slog.Bool("legacy_rounding", cfg.Press.LegacyRounding))

	otelCfg := infrastructure.NewOTelConfig(cfg.Telemetry)
	otelCfg.TraceWriter = cmd.ErrOrStderr()
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.NewRunMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create run metrics: %w", err)
	}
	system, err := infrastructure.NewSystemMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("failed to create system metrics: %w", err)
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateWorkbook(o.workbook); err != nil {
		return err
	}
	for _, dir := range []string{o.csvDir, o.plotDir} {
		if dir == "" {
			continue
		}
		if err := validator.ValidateOutputDirectory(dir); err != nil {
			return err
		}
	}

	ds, err := dataprocessing.LoadDataset(ctx, o.workbook, dataprocessing.LoadOptions{
		HeaderLines:      cfg.Press.HeaderLines,
		DepthReferenceMM: cfg.Press.DepthReferenceMM,
		Logger:           logger,
	})
	if err != nil {
		return err
	}
	metrics.RecordSkipped(ctx, len(ds.Skipped))

	cal, err := press.ResolveCalibration(ds.Blank, defaultCalibration(cfg), newFitter(cfg))
	if err != nil {
		logger.ErrorContext(ctx, "calibration failed", slog.String("error", err.Error()))
		return fmt.Errorf("calibration failed: %w", err)
	}
	metrics.RecordCalibration(ctx, cal)
	logger.InfoContext(ctx, "calibration resolved",
		slog.String("source", string(cal.Source)),
		slog.Float64("a", cal.A),
		slog.Float64("b", cal.B),
		slog.Float64("r_squared", cal.RSquared))

	proc := press.NewProcessor(cal,
		press.WithWorkers(cfg.Processing.Workers),
		press.WithEnergyOptions(press.EnergyOptions{
			ConversionFactor: cfg.Press.EnergyConversion,
			LegacyRounding:   cfg.Press.LegacyRounding,
		}),
		press.WithPistonDiameter(cfg.Press.PistonDiameterMM),
		press.WithLogger(logger),
		press.WithTracer(providers.Tracer),
		press.WithRecorder(metrics),
	)

	outcomes, err := proc.ProcessAll(ctx, ds.Samples)
	if err != nil {
		return err
	}

	results := make([]*press.Result, 0, len(outcomes))
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
			continue
		}
		results = append(results, out.Result)
	}

	if len(results) > 0 {
		if err := exporter.NewWorkbookWriter(o.workbook, logger).WriteResults(cal, results); err != nil {
			return err
		}
	}
	if err := writeExtras(o, logger, results); err != nil {
		return err
	}

	system.Collect(ctx, start)
	if cfg.Telemetry.MetricsFile != "" {
		if err := infrastructure.WriteMetricsFile(cfg.Telemetry.MetricsFile, providers.Registry); err != nil {
			return err
		}
	}

	printSummary(cmd.OutOrStdout(), cal, outcomes, ds.Skipped)

	logger.InfoContext(ctx, "processing finished",
		slog.Int("processed", len(results)),
		slog.Int("failed", failed),
		slog.Int("skipped", len(ds.Skipped)),
		slog.Duration("elapsed", time.Since(start)))

	if n := failed + len(ds.Skipped); n > 0 {
		return fmt.Errorf("%d of %d samples could not be processed", n, len(ds.Book.Records))
	}
	return nil
}

func writeExtras(o options, logger *slog.Logger, results []*press.Result) error {
	if o.csvDir != "" {
		csvWriter := exporter.NewCSVWriter(o.csvDir, logger)
		csvWriter.Reserve(summaryFile)
		for _, res := range results {
			if _, err := csvWriter.WriteCurve(res); err != nil {
				return err
			}
		}
		if err := csvWriter.WriteSummary(summaryFile, results); err != nil {
			return err
		}
		logger.Info("CSV written", slog.String("dir", o.csvDir), slog.Int("samples", len(results)))
	}

	if o.plotDir != "" {
		plots := exporter.NewPlotWriter(o.plotDir)
		for _, res := range results {
			if _, err := plots.WriteCurve(res); err != nil {
				return err
			}
		}
		logger.Info("plots written", slog.String("dir", o.plotDir), slog.Int("samples", len(results)))
	}
	return nil
}

func printSummary(w io.Writer, cal press.Calibration, outcomes []press.Outcome, skipped []dataprocessing.SkippedSample) {
	fmt.Fprintf(w, "calibration (%s): a=%.6g b=%.6g", cal.Source, cal.A, cal.B)
	if cal.Source == press.SourceFitted {
		fmt.Fprintf(w, " R²=%.5f", cal.RSquared)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tMASS (g)\tENERGY (kWh/t)\tPRESSURE (N/mm²)\tCOMPRESSION\tSTATUS")
	for _, out := range outcomes {
		if out.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%v\n", out.Sample, out.Err)
			continue
		}
		r := out.Result
		fmt.Fprintf(tw, "%s\t%g\t%.6f\t%.4f\t%.4f\tok\n",
			r.Sample, r.Mass, r.Energy.Total, r.Metrics.PeakPressure, r.Metrics.CompressionRatio)
	}
	for _, s := range skipped {
		fmt.Fprintf(tw, "%s\t-\t-\t-\t-\tskipped: %v\n", s.Name, s.Err)
	}
	tw.Flush()
}

func runCalibrate(cmd *cobra.Command, o options) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	logger, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	if err := validation.NewFileValidator(logger).ValidateInstrumentFile(o.blank); err != nil {
		return err
	}
	curve, err := dataprocessing.ParseInstrumentFile(o.blank, cfg.Press.HeaderLines)
	if err != nil {
		return err
	}

	cal, err := press.ResolveCalibration(&press.Sample{
		Name:         filepath.Base(o.blank),
		Time:         curve.Time,
		Force:        curve.Force,
		Displacement: curve.Displacement,
	}, defaultCalibration(cfg), newFitter(cfg))
	if err != nil {
		return fmt.Errorf("calibration failed: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "a\t%.10g\n", cal.A)
	fmt.Fprintf(w, "b\t%.10g\n", cal.B)
	fmt.Fprintf(w, "r_squared\t%.10g\n", cal.RSquared)
	fmt.Fprintf(w, "iterations\t%d\n", cal.Iterations)
	return nil
}
