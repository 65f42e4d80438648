package press

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

const (
	defaultMaxIterations = 200
	defaultTolerance     = 1e-10

	lambdaInit = 1e-3
	lambdaMin  = 1e-12
	lambdaMax  = 1e16

	// maxCondition bounds cond₂(JᵀJ) at the fitted parameters.
	maxCondition = 1e12
)

// Fitter fits y = a·x^b by Levenberg–Marquardt least squares.
//
// The zero value is usable. When InitialA and InitialB are both zero the
// search starts from a log-log linear regression of the strictly positive
// points, or from (1, 1) when that regression is not possible.
type Fitter struct {
	MaxIterations int
	Tolerance     float64
	InitialA      float64
	InitialB      float64
}

// FitAllometric fits with default settings.
func FitAllometric(x, y []float64) (Calibration, error) {
	return (&Fitter{}).Fit(x, y)
}

// Fit returns the calibration minimising Σ(y − a·x^b)². x must be
// non-negative (callers pass absolute force). R² is evaluated at the fitted
// (a, b).
func (f *Fitter) Fit(x, y []float64) (Calibration, error) {
	if len(x) != len(y) {
		return Calibration{}, apperrors.NewDimensionMismatchError("calibration x/y", len(x), len(y))
	}
	if len(x) < 2 {
		return Calibration{}, apperrors.NewFitError(
			fmt.Sprintf("need at least 2 points to fit 2 parameters, got %d", len(x)), nil)
	}
	for i := range x {
		if !isFinite(x[i]) || !isFinite(y[i]) {
			return Calibration{}, apperrors.NewFitError("non-finite calibration data", nil).
				WithContext("index", i)
		}
		if x[i] < 0 {
			return Calibration{}, apperrors.NewDomainError("calibration abscissa must be non-negative").
				WithContext("index", i).
				WithContext("x", x[i])
		}
	}

	if distinctPositive(x) < 2 {
		return Calibration{}, apperrors.NewFitError("need at least 2 distinct positive abscissae", nil)
	}

	mean := stat.Mean(y, nil)
	ssTot := 0.0
	for _, v := range y {
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		return Calibration{}, apperrors.NewFitError("dependent data is constant", nil)
	}

	maxIter := f.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	tol := f.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}

	p := f.start(x, y)
	cost, ok := sumSquares(x, y, p)
	if !ok {
		p = [2]float64{1, 1}
		if cost, ok = sumSquares(x, y, p); !ok {
			return Calibration{}, apperrors.NewFitError("model not finite at any starting point", nil).
				WithContext("initial_a", f.InitialA).
				WithContext("initial_b", f.InitialB)
		}
	}

	lambda := lambdaInit
	for iter := 1; iter <= maxIter; iter++ {
		if cost == 0 {
			return f.result(x, y, p, iter)
		}

		jtj, jtr := normalEquations(x, y, p)
		if jtj.At(0, 0) == 0 || jtj.At(1, 1) == 0 {
			return Calibration{}, apperrors.NewFitError("singular Jacobian", nil).
				WithContext("a", p[0]).
				WithContext("b", p[1])
		}

		for {
			step, err := solveDamped(jtj, jtr, lambda)
			if err == nil {
				trial := [2]float64{p[0] + step.AtVec(0), p[1] + step.AtVec(1)}
				if trialCost, ok := sumSquares(x, y, trial); ok && trialCost < cost {
					rel := math.Hypot(step.AtVec(0), step.AtVec(1)) / (math.Hypot(p[0], p[1]) + tol)
					drop := cost - trialCost
					p, cost = trial, trialCost
					lambda = math.Max(lambda/10, lambdaMin)
					if rel < tol || drop <= tol*cost {
						return f.result(x, y, p, iter)
					}
					break
				}
			}
			lambda *= 10
			if lambda > lambdaMax {
				// No damped step lowers the cost: p is a minimum to
				// working precision.
				return f.result(x, y, p, iter)
			}
		}
	}

	return Calibration{}, apperrors.NewFitError(
		fmt.Sprintf("did not converge within %d iterations", maxIter), nil).
		WithContext("a", p[0]).
		WithContext("b", p[1])
}

// start picks the initial parameter vector.
func (f *Fitter) start(x, y []float64) [2]float64 {
	if f.InitialA != 0 || f.InitialB != 0 {
		return [2]float64{f.InitialA, f.InitialB}
	}

	lx := make([]float64, 0, len(x))
	ly := make([]float64, 0, len(y))
	for i := range x {
		if x[i] > 0 && y[i] > 0 {
			lx = append(lx, math.Log(x[i]))
			ly = append(ly, math.Log(y[i]))
		}
	}
	if len(lx) >= 2 && stat.Variance(lx, nil) > 0 {
		alpha, beta := stat.LinearRegression(lx, ly, nil, false)
		if a := math.Exp(alpha); isFinite(a) && isFinite(beta) {
			return [2]float64{a, beta}
		}
	}
	return [2]float64{1, 1}
}

func (f *Fitter) result(x, y []float64, p [2]float64, iterations int) (Calibration, error) {
	if !isFinite(p[0]) || !isFinite(p[1]) {
		return Calibration{}, apperrors.NewFitError("fit produced non-finite parameters", nil)
	}
	jtj, _ := normalEquations(x, y, p)
	if c := mat.Cond(jtj, 2); !(c <= maxCondition) {
		return Calibration{}, apperrors.NewFitError("singular Jacobian at fitted parameters", nil).
			WithContext("a", p[0]).
			WithContext("b", p[1]).
			WithContext("condition", c)
	}
	estimates, err := AllometricSeries(x, p[0], p[1])
	if err != nil {
		return Calibration{}, apperrors.NewFitError("model undefined at fitted parameters", err)
	}
	return Calibration{
		A:          p[0],
		B:          p[1],
		RSquared:   stat.RSquaredFrom(estimates, y, nil),
		Iterations: iterations,
		Source:     SourceFitted,
	}, nil
}

// sumSquares returns Σ(y − a·x^b)², or false when the model is undefined
// or the sum is not finite.
func sumSquares(x, y []float64, p [2]float64) (float64, bool) {
	sum := 0.0
	for i := range x {
		m, err := Allometric(x[i], p[0], p[1])
		if err != nil {
			return 0, false
		}
		r := y[i] - m
		sum += r * r
	}
	return sum, isFinite(sum)
}

// normalEquations builds JᵀJ and Jᵀr for the model at p.
func normalEquations(x, y []float64, p [2]float64) (*mat.SymDense, *mat.VecDense) {
	a, b := p[0], p[1]
	var s00, s01, s11, g0, g1 float64
	for i := range x {
		xb := math.Pow(x[i], b)
		da := xb
		db := 0.0
		if x[i] > 0 {
			db = a * xb * math.Log(x[i])
		}
		r := y[i] - a*xb
		s00 += da * da
		s01 += da * db
		s11 += db * db
		g0 += da * r
		g1 += db * r
	}
	return mat.NewSymDense(2, []float64{s00, s01, s01, s11}), mat.NewVecDense(2, []float64{g0, g1})
}

// solveDamped solves (JᵀJ + λ·diag(JᵀJ))·δ = Jᵀr.
func solveDamped(jtj *mat.SymDense, jtr *mat.VecDense, lambda float64) (*mat.VecDense, error) {
	damped := mat.NewSymDense(2, nil)
	damped.CopySym(jtj)
	for i := 0; i < 2; i++ {
		damped.SetSym(i, i, jtj.At(i, i)*(1+lambda))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, fmt.Errorf("damped normal matrix is not positive definite")
	}

	var step mat.VecDense
	if err := chol.SolveVecTo(&step, jtr); err != nil {
		// An ill-conditioned solve is still usable when it stays finite.
		if !isFinite(step.AtVec(0)) || !isFinite(step.AtVec(1)) {
			return nil, err
		}
	}
	return &step, nil
}

// distinctPositive counts the distinct strictly positive values in x.
func distinctPositive(x []float64) int {
	seen := make(map[float64]struct{}, len(x))
	for _, v := range x {
		if v > 0 {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
