package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// SampleBookHeaders is the header row of a sample information workbook.
// The blank test file name sits in column J.
var SampleBookHeaders = []string{
	"File", "Mass",
	"Initial_depth_1", "Initial_depth_2", "Initial_depth_3",
	"Final_depth_1", "Final_depth_2", "Final_depth_3",
	"Notes", "Blank",
}

// SampleRow is one row of a sample information workbook.
type SampleRow struct {
	File    string
	Mass    any
	Initial [3]float64
	Final   [3]float64
	Notes   string
}

// WriteSampleBook saves a sample information workbook at path. blank is
// written to J2 when non-empty.
func WriteSampleBook(t testing.TB, path, blank string, rows []SampleRow) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]interface{}, len(SampleBookHeaders))
	for i, h := range SampleBookHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		t.Fatalf("write header: %v", err)
	}

	for i, r := range rows {
		values := []interface{}{
			r.File, r.Mass,
			r.Initial[0], r.Initial[1], r.Initial[2],
			r.Final[0], r.Final[1], r.Final[2],
			r.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}

	if blank != "" {
		if err := f.SetCellValue(sheet, "J2", blank); err != nil {
			t.Fatalf("write blank: %v", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

// WriteInstrumentFile writes a tab-delimited press dump with the usual
// eight-line preamble and returns its path.
func WriteInstrumentFile(t testing.TB, path string, time, force, disp []float64) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Instron Test Report\n")
	fmt.Fprintf(&b, "Sample:\t%s\n", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	b.WriteString("Operator:\tlab\n")
	b.WriteString("Rate:\t1.0 mm/min\n")
	b.WriteString("\n")
	b.WriteString("Time\tForce\tDisplacement\n")
	b.WriteString("(s)\t(kN)\t(mm)\n")
	b.WriteString("\n")
	for i := range time {
		fmt.Fprintf(&b, "%g\t%g\t%g\n", time[i], force[i], disp[i])
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write instrument file: %v", err)
	}
	return path
}
