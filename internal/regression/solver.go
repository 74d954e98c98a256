package regression

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Solver is the numerical backend for piecewise-linear least squares. When
// breaks is nil the solver chooses breakpoint locations itself; otherwise
// it fits slopes and intercepts with the breakpoints held fixed. The
// returned breakpoint array always has nSegments+1 strictly increasing
// entries spanning the data domain.
type Solver interface {
	FitPiecewise(x, y []float64, nSegments int, breaks []float64) (breakpoints, slopes, intercepts []float64, err error)
}

// GonumSolver fits piecewise models with an exact linear least-squares
// solve for fixed breakpoints and Nelder-Mead search over interior
// breakpoint locations when none are supplied.
type GonumSolver struct{}

// FitPiecewise implements Solver
func (GonumSolver) FitPiecewise(x, y []float64, nSegments int, breaks []float64) ([]float64, []float64, []float64, error) {
	if breaks != nil {
		return solveWithBreaks(x, y, breaks)
	}

	xmin := floats.Min(x)
	xmax := floats.Max(x)
	if xmin == xmax {
		return nil, nil, nil, fmt.Errorf("degenerate domain: all x values equal %g", xmin)
	}

	// Evenly spaced interior breakpoints as the starting guess
	initial := make([]float64, nSegments-1)
	for i := range initial {
		initial[i] = xmin + float64(i+1)*(xmax-xmin)/float64(nSegments)
	}

	if nSegments == 1 {
		return solveWithBreaks(x, y, []float64{xmin, xmax})
	}

	// A large finite penalty keeps the simplex well-defined when a
	// candidate collapses two breakpoints or leaves the domain. Kept
	// well below MaxFloat64 so reflection arithmetic cannot overflow.
	const penalty = 1e300

	problem := optimize.Problem{
		Func: func(p []float64) float64 {
			bks, ok := assembleBreaks(xmin, xmax, p)
			if !ok {
				return penalty
			}
			ss := residualSS(x, y, bks)
			if math.IsInf(ss, 0) || math.IsNaN(ss) {
				return penalty
			}
			return ss
		},
	}

	interior := initial
	result, err := optimize.Minimize(problem, initial, nil, &optimize.NelderMead{})
	if err == nil && result != nil {
		interior = result.X
	}

	bks, ok := assembleBreaks(xmin, xmax, interior)
	if !ok {
		bks = append([]float64{xmin}, initial...)
		bks = append(bks, xmax)
	}
	return solveWithBreaks(x, y, bks)
}

// assembleBreaks builds the full breakpoint array from interior candidate
// locations, rejecting candidates outside the open domain or coincident
// with each other
func assembleBreaks(xmin, xmax float64, interior []float64) ([]float64, bool) {
	sorted := make([]float64, len(interior))
	copy(sorted, interior)
	sort.Float64s(sorted)

	bks := make([]float64, 0, len(sorted)+2)
	bks = append(bks, xmin)
	bks = append(bks, sorted...)
	bks = append(bks, xmax)

	for i := 0; i+1 < len(bks); i++ {
		if bks[i] >= bks[i+1] {
			return nil, false
		}
	}
	return bks, true
}

// residualSS returns the sum of squared residuals of the best continuous
// piecewise fit with the given fixed breakpoints
func residualSS(x, y, breaks []float64) float64 {
	_, slopes, intercepts, err := solveWithBreaks(x, y, breaks)
	if err != nil {
		return math.Inf(1)
	}
	m := Model{Breakpoints: breaks, Slopes: slopes, Intercepts: intercepts, NSegments: len(slopes)}
	pred := m.Predict(x)
	ss := 0.0
	for i := range y {
		d := y[i] - pred[i]
		ss += d * d
	}
	return ss
}

// solveWithBreaks fits the continuous piecewise-linear model with fixed
// breakpoints by ordinary least squares on the hinge basis
// [1, x-b0, (x-b1)+, ..., (x-b_{k-1})+]. Continuity at the breakpoints is
// enforced by construction.
func solveWithBreaks(x, y, breaks []float64) ([]float64, []float64, []float64, error) {
	k := len(breaks) - 1
	n := len(x)

	a := mat.NewDense(n, k+1, nil)
	for i, xv := range x {
		a.Set(i, 0, 1)
		a.Set(i, 1, xv-breaks[0])
		for j := 2; j <= k; j++ {
			h := xv - breaks[j-1]
			if h < 0 {
				h = 0
			}
			a.Set(i, j, h)
		}
	}

	var beta mat.VecDense
	if err := beta.SolveVec(a, mat.NewVecDense(n, y)); err != nil {
		// An ill-conditioned system still carries a usable solution;
		// only a hard failure aborts the fit.
		if _, ok := err.(mat.Condition); !ok {
			return nil, nil, nil, fmt.Errorf("least squares solve failed: %w", err)
		}
	}

	slopes := make([]float64, k)
	intercepts := make([]float64, k)
	slope := 0.0
	for i := 0; i < k; i++ {
		slope += beta.AtVec(i + 1)
		slopes[i] = slope
	}

	// Intercepts follow from continuity at each interior breakpoint
	intercepts[0] = beta.AtVec(0) - slopes[0]*breaks[0]
	for i := 1; i < k; i++ {
		left := slopes[i-1]*breaks[i] + intercepts[i-1]
		intercepts[i] = left - slopes[i]*breaks[i]
	}

	out := make([]float64, len(breaks))
	copy(out, breaks)
	return out, slopes, intercepts, nil
}
