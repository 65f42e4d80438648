package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

// DefaultDepthReferenceMM is the gauge reading of an empty die.
const DefaultDepthReferenceMM = 153.0

// BedDepth converts three depth-gauge readings into a bed height.
// The sum of readings is taken from reference and normalised by
// samples+1, as historical reports were.
func BedDepth(readings [3]float64, reference float64, samples int) float64 {
	return (reference - readings[0] - readings[1] - readings[2]) / float64(samples+1)
}

// LoadOptions controls LoadDataset.
type LoadOptions struct {
	HeaderLines      int
	DepthReferenceMM float64
	Logger           *slog.Logger
}

// SkippedSample is a sample whose instrument file could not be read.
type SkippedSample struct {
	Name string
	File string
	Err  error
}

// Dataset is everything needed to run one workbook through the press
// pipeline.
type Dataset struct {
	Book    *SampleBook
	Blank   *press.Sample
	Samples []press.Sample
	Skipped []SkippedSample
}

// LoadDataset reads the sample workbook and every instrument file it lists.
// Instrument paths are resolved relative to the workbook. A blank test that
// cannot be read fails the whole load; an unreadable sample file is
// reported in Skipped.
func LoadDataset(ctx context.Context, workbookPath string, opts LoadOptions) (*Dataset, error) {
	if opts.HeaderLines == 0 {
		opts.HeaderLines = DefaultHeaderLines
	}
	if opts.DepthReferenceMM == 0 {
		opts.DepthReferenceMM = DefaultDepthReferenceMM
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	book, err := ReadSampleBook(workbookPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(workbookPath)
	ds := &Dataset{Book: book}

	if book.Blank != "" {
		curve, err := ParseInstrumentFile(resolve(dir, book.Blank), opts.HeaderLines)
		if err != nil {
			return nil, err
		}
		ds.Blank = &press.Sample{
			Name:         "blank",
			Time:         curve.Time,
			Force:        curve.Force,
			Displacement: curve.Displacement,
		}
		logger.InfoContext(ctx, "blank test loaded",
			slog.String("file", book.Blank),
			slog.Int("points", curve.Len()))
	} else {
		logger.InfoContext(ctx, "no blank file provided")
	}

	n := len(book.Records)
	for _, rec := range book.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		curve, err := ParseInstrumentFile(resolve(dir, rec.File), opts.HeaderLines)
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				appErr.WithContext("sample", rec.Name())
			}
			logger.WarnContext(ctx, "skipping sample",
				slog.String("sample", rec.Name()),
				slog.String("file", rec.File),
				slog.String("error", err.Error()))
			ds.Skipped = append(ds.Skipped, SkippedSample{Name: rec.Name(), File: rec.File, Err: err})
			continue
		}

		ds.Samples = append(ds.Samples, press.Sample{
			Name:         rec.Name(),
			Time:         curve.Time,
			Force:        curve.Force,
			Displacement: curve.Displacement,
			Mass:         rec.Mass,
			InitialDepth: BedDepth(rec.Initial, opts.DepthReferenceMM, n),
			FinalDepth:   BedDepth(rec.Final, opts.DepthReferenceMM, n),
		})
	}

	logger.InfoContext(ctx, "dataset loaded",
		slog.String("workbook", workbookPath),
		slog.Int("samples", len(ds.Samples)),
		slog.Int("skipped", len(ds.Skipped)),
		slog.Bool("has_blank", ds.Blank != nil))
	return ds, nil
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, filepath.FromSlash(name))
}
