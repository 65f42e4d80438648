package press

import (
	"math"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// PistonArea returns the face area in mm² of a piston of the given diameter.
func PistonArea(diameterMM float64) float64 {
	r := diameterMM / 2
	return math.Pi * r * r
}

// PeakPressure converts the final force reading (kN) to N/mm² over area.
func PeakPressure(force []float64, area float64) (float64, error) {
	if len(force) == 0 {
		return 0, apperrors.NewAppValidationError("no force readings")
	}
	if area == 0 {
		return 0, apperrors.NewDivisionByZeroError("piston area is zero")
	}
	return math.Abs(force[len(force)-1]) * 1000 / area, nil
}

// CompressionRatio is the fractional loss of bed height during the test.
func CompressionRatio(initialDepth, finalDepth float64) (float64, error) {
	if initialDepth == 0 {
		return 0, apperrors.NewDivisionByZeroError("initial bed depth is zero")
	}
	return (initialDepth - finalDepth) / initialDepth, nil
}
