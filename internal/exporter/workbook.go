package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
	"github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/press"
)

// CalibrationSheet is the name of the sheet holding the fitted constants.
const CalibrationSheet = "Calibration"

var resultHeaders = []interface{}{
	"Corrected Displacement (mm)", "Force (kN)", "Specific Energy (kWh/t)",
	nil, "Specific Energy (kWh/t)",
	nil, "Pressure (N/mm^2)",
	nil, "Compression Ratio",
}

// WorkbookWriter adds result sheets to a workbook, normally the sample
// information workbook the inputs came from.
type WorkbookWriter struct {
	path   string
	logger *slog.Logger
}

// NewWorkbookWriter creates a writer for the workbook at path. The file is
// created when it does not exist.
func NewWorkbookWriter(path string, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{path: path, logger: logger.With(slog.String("component", "workbook_writer"))}
}

// WriteResults writes one sheet per result plus the Calibration sheet and
// saves the workbook. Sheets left by an earlier run with the same name are
// replaced; the first sheet, which holds the sample list, is never touched.
// Names are compared ignoring case, as Excel does, and a sample whose sheet
// name is already taken in this run gets a numeric suffix.
func (w *WorkbookWriter) WriteResults(cal press.Calibration, results []*press.Result) error {
	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	inputSheet := f.GetSheetName(0)
	sheets := newNameSet(inputSheet, CalibrationSheet)
	for _, res := range results {
		name := SheetName(res.Sample)
		if strings.EqualFold(name, inputSheet) || strings.EqualFold(name, CalibrationSheet) {
			name = SheetName(name + "_result")
		}
		name = sheets.claim(name, maxSheetNameLen)
		if err := writeResultSheet(f, name, res); err != nil {
			return apperrors.NewStorageError("failed to write result sheet", err).
				WithContext("sheet", name).
				WithContext("sample", res.Sample)
		}
		w.logger.Debug("result sheet written", slog.String("sheet", name), slog.Int("rows", len(res.Curve.Force)))
	}

	if err := writeCalibrationSheet(f, cal); err != nil {
		return apperrors.NewStorageError("failed to write calibration sheet", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", w.path)
	}
	w.logger.Info("results workbook saved",
		slog.String("path", w.path),
		slog.Int("sheets", len(results)))
	return nil
}

func (w *WorkbookWriter) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewStorageError("failed to open workbook", err).WithContext("path", w.path)
	}
	return excelize.NewFile(), nil
}

// recreateSheet deletes name if present and adds it again empty.
func recreateSheet(f *excelize.File, name string) error {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	if idx != -1 {
		if err := f.DeleteSheet(name); err != nil {
			return err
		}
	}
	_, err = f.NewSheet(name)
	return err
}

func writeResultSheet(f *excelize.File, name string, res *press.Result) error {
	if err := recreateSheet(f, name); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", resultHeaders); err != nil {
		return err
	}

	for i := range res.Curve.Force {
		row := []interface{}{res.Curve.Displacement[i], res.Curve.Force[i], res.Energy.Specific[i]}
		if i == 0 {
			row = append(row, nil, res.Energy.Total, nil, res.Metrics.PeakPressure, nil, res.Metrics.CompressionRatio)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	return sw.Flush()
}

func writeCalibrationSheet(f *excelize.File, cal press.Calibration) error {
	if err := recreateSheet(f, CalibrationSheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"a", cal.A},
		{"b", cal.B},
		{"R squared", cal.RSquared},
		{"Source", string(cal.Source)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CalibrationSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
