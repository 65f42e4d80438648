// Package exporter writes processed press results.
//
// WorkbookWriter adds one sheet per sample to the sample information
// workbook, with the corrected curve in columns A to C and the total
// specific energy, pressure and compression ratio in E2, G2 and I2, plus a
// Calibration sheet. CSVWriter writes per-sample curve files and a summary
// with a UTF-8 BOM so Excel opens them correctly. PlotWriter renders force
// against corrected displacement as PNG.
//
//	ww := exporter.NewWorkbookWriter("samples.xlsx", logger)
//	if err := ww.WriteResults(cal, results); err != nil {
//	    return err
//	}
package exporter
