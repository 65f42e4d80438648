package press

import (
	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// ResolveCalibration returns defaults when blank is nil and otherwise fits
// |displacement| against |force| of the blank test. A failed fit is
// returned as is; falling back to defaults is the caller's decision.
func ResolveCalibration(blank *Sample, defaults Calibration, f *Fitter) (Calibration, error) {
	if blank == nil {
		defaults.Source = SourceDefault
		defaults.RSquared = 0
		defaults.Iterations = 0
		return defaults, nil
	}
	if len(blank.Force) != len(blank.Displacement) {
		return Calibration{}, apperrors.NewDimensionMismatchError("blank force/displacement",
			len(blank.Force), len(blank.Displacement))
	}
	if f == nil {
		f = &Fitter{}
	}
	return f.Fit(Absolute(blank.Force), Absolute(blank.Displacement))
}
