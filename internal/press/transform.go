package press

import (
	"math"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// Absolute returns a new slice holding |x| for every element of xs.
func Absolute(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Abs(x)
	}
	return out
}

// Allometric evaluates a·x^b.
//
// A negative x with a non-integer exponent has no real value and returns a
// DOMAIN error; x == 0 with b < 0 returns DIVISION_BY_ZERO.
func Allometric(x, a, b float64) (float64, error) {
	if x < 0 && b != math.Trunc(b) {
		return 0, apperrors.NewDomainError("negative base with non-integer exponent").
			WithContext("x", x).
			WithContext("b", b)
	}
	if x == 0 && b < 0 {
		return 0, apperrors.NewDivisionByZeroError("zero base with negative exponent").
			WithContext("b", b)
	}
	return a * math.Pow(x, b), nil
}

// AllometricSeries evaluates Allometric for every element of xs.
func AllometricSeries(xs []float64, a, b float64) ([]float64, error) {
	out := make([]float64, len(xs))
	for i, x := range xs {
		y, err := Allometric(x, a, b)
		if err != nil {
			return nil, err.(*apperrors.AppError).WithContext("index", i)
		}
		out[i] = y
	}
	return out, nil
}
