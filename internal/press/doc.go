// Package press reduces piston die press runs to calibrated curves and
// summary numbers.
//
// A run is corrected in four steps:
//
//  1. A blank test (no material in the die) is fitted to the allometric
//     compliance model y = a·x^b with Fitter.Fit, or DefaultCalibration is
//     used when no blank exists.
//  2. CorrectDisplacement removes a·|F|^b from every |displacement| reading.
//  3. IntegrateWork accumulates the trapezoidal area of force over corrected
//     displacement.
//  4. ConvertEnergy divides work by sample mass to give kWh/t, and
//     PeakPressure and CompressionRatio summarise the run.
//
// All of these are pure functions. Processor chains them for many samples
// that share one Calibration and can run samples in parallel.
package press
