// Package dataprocessing reads the inputs of a piston die press analysis:
// the sample information workbook and the tab-delimited text dumps written
// by the press software.
//
// # Sample workbook
//
// The first sheet carries one row per sample with the headers File, Mass,
// Initial_depth_1..3 and Final_depth_1..3. The blank test file name is read
// from the Blank column of the first data row, or from column J when there
// is no such header.
//
// # Instrument files
//
// Eight preamble lines are followed by tab-separated time, force (kN) and
// displacement (mm) columns:
//
//	curve, err := dataprocessing.ParseInstrumentFile("run01.txt", dataprocessing.DefaultHeaderLines)
//
// # Datasets
//
// LoadDataset combines both into press samples ready for processing:
//
//	ds, err := dataprocessing.LoadDataset(ctx, "samples.xlsx", dataprocessing.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	cal, err := press.ResolveCalibration(ds.Blank, press.DefaultCalibration(), &press.Fitter{})
package dataprocessing
