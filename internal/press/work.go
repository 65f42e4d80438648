package press

import (
	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// IntegrateWork accumulates the trapezoidal area under force over disp.
// work[0] is 0 and increments are signed: a falling displacement
// (unloading) reduces the total.
func IntegrateWork(force, disp []float64) (WorkSeries, error) {
	if len(force) != len(disp) {
		return nil, apperrors.NewDimensionMismatchError("force/displacement", len(force), len(disp))
	}
	if len(force) == 0 {
		return nil, apperrors.NewAppValidationError("cannot integrate an empty curve")
	}

	work := make(WorkSeries, len(force))
	for i := 1; i < len(force); i++ {
		work[i] = work[i-1] + 0.5*(force[i]+force[i-1])*(disp[i]-disp[i-1])
	}
	return work, nil
}
