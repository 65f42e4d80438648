package press

import (
	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

const (
	// DefaultA and DefaultB are the allometric constants used when a dataset
	// has no blank test.
	DefaultA = 0.0357
	DefaultB = 0.4701

	// PistonDiameterMM is the diameter of the standard die piston.
	PistonDiameterMM = 86.0

	// EnergyConversionFactor converts J/g to kWh/t.
	EnergyConversionFactor = 3.6
)

// CalibrationSource records where a Calibration came from.
type CalibrationSource string

const (
	SourceFitted  CalibrationSource = "fitted"
	SourceDefault CalibrationSource = "default"
)

// Calibration is the compliance model y = A·x^B fitted to a blank test.
// RSquared is only meaningful for fitted calibrations.
type Calibration struct {
	A          float64           `json:"a"`
	B          float64           `json:"b"`
	RSquared   float64           `json:"r_squared"`
	Iterations int               `json:"iterations,omitempty"`
	Source     CalibrationSource `json:"source"`
}

// DefaultCalibration returns the no-blank constants.
func DefaultCalibration() Calibration {
	return Calibration{A: DefaultA, B: DefaultB, Source: SourceDefault}
}

// Sample is one press run. Mass may be any numeric type or a numeric string,
// as read from the sample sheet; see ParseMass.
type Sample struct {
	Name         string    `json:"name"`
	Time         []float64 `json:"time"`
	Force        []float64 `json:"force"`        // kN
	Displacement []float64 `json:"displacement"` // mm
	Mass         any       `json:"mass"`         // g
	InitialDepth float64   `json:"initial_depth"`
	FinalDepth   float64   `json:"final_depth"`
}

// Len returns the number of recorded points.
func (s Sample) Len() int {
	return len(s.Force)
}

// Validate checks that the three channels have equal length and that time
// is strictly increasing.
func (s Sample) Validate() error {
	if len(s.Force) != len(s.Displacement) {
		return apperrors.NewDimensionMismatchError("force/displacement", len(s.Force), len(s.Displacement))
	}
	if len(s.Time) != len(s.Force) {
		return apperrors.NewDimensionMismatchError("time/force", len(s.Time), len(s.Force))
	}
	for i := 1; i < len(s.Time); i++ {
		if !(s.Time[i] > s.Time[i-1]) {
			return apperrors.NewAppValidationError("time must be strictly increasing").
				WithContext("index", i).
				WithContext("sample", s.Name)
		}
	}
	return nil
}

// CorrectedCurve holds |force| against compliance-corrected displacement.
type CorrectedCurve struct {
	Force        []float64 `json:"force"`
	Displacement []float64 `json:"displacement"`
}

// WorkSeries is the cumulative signed work along a CorrectedCurve.
type WorkSeries []float64

// Total returns the last cumulative value.
func (w WorkSeries) Total() float64 {
	if len(w) == 0 {
		return 0
	}
	return w[len(w)-1]
}

// EnergyResult holds specific energy in kWh/t.
type EnergyResult struct {
	Specific []float64 `json:"specific"`
	Total    float64   `json:"total"`
}

// DerivedMetrics are the per-sample scalar outputs.
type DerivedMetrics struct {
	PeakPressure     float64 `json:"peak_pressure"` // N/mm²
	CompressionRatio float64 `json:"compression_ratio"`
}

// Result bundles everything computed for one sample.
type Result struct {
	Sample  string         `json:"sample"`
	Mass    float64        `json:"mass"`
	Curve   CorrectedCurve `json:"curve"`
	Work    WorkSeries     `json:"work"`
	Energy  EnergyResult   `json:"energy"`
	Metrics DerivedMetrics `json:"metrics"`
}
