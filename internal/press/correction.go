package press

import (
	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// CorrectionFactors returns a·force[i]^b for every point, the displacement
// taken up by the press itself at that load. A calibration with A == 0
// models no compliance and yields zeros for any B.
func CorrectionFactors(force []float64, cal Calibration) ([]float64, error) {
	out := make([]float64, len(force))
	if cal.A == 0 {
		return out, nil
	}
	for i, f := range force {
		c, err := Allometric(f, cal.A, cal.B)
		if err != nil {
			return nil, err.(*apperrors.AppError).WithContext("index", i)
		}
		out[i] = c
	}
	return out, nil
}

// CorrectDisplacement subtracts the compliance correction from disp.
// force and disp are expected to be absolute values already.
func CorrectDisplacement(force, disp []float64, cal Calibration) (CorrectedCurve, error) {
	if len(force) != len(disp) {
		return CorrectedCurve{}, apperrors.NewDimensionMismatchError("force/displacement", len(force), len(disp))
	}

	corr, err := CorrectionFactors(force, cal)
	if err != nil {
		return CorrectedCurve{}, err
	}

	f := make([]float64, len(force))
	copy(f, force)
	d := make([]float64, len(disp))
	for i := range disp {
		d[i] = disp[i] - corr[i]
	}
	return CorrectedCurve{Force: f, Displacement: d}, nil
}
