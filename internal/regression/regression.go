// Package regression fits continuous piecewise-linear models to
// stage-discharge relationships that change regime between in-channel and
// floodplain flow.
package regression

import (
	"errors"
	"fmt"
	"math"

	"github.com/floodwatch/floodwatch/internal/log"
)

// ErrSolverUnavailable indicates that no piecewise solver is configured.
// It is returned before any computation begins.
var ErrSolverUnavailable = errors.New("piecewise solver not configured")

// elbowThreshold is the minimum R-squared improvement that justifies an
// additional segment
const elbowThreshold = 0.01

// Model is a fitted piecewise-linear curve. Breakpoints has exactly
// NSegments+1 entries, strictly increasing, with the first and last at the
// domain bounds. Segment i covers (Breakpoints[i], Breakpoints[i+1]],
// except the first segment, which includes its left boundary.
type Model struct {
	Breakpoints []float64
	Slopes      []float64
	Intercepts  []float64
	RSquared    float64
	RMSE        float64
	NSegments   int
}

func (m *Model) String() string {
	return fmt.Sprintf("segmented regression (%d segments): R2 = %.4f, RMSE = %.4f, breakpoints = %v",
		m.NSegments, m.RSquared, m.RMSE, m.Breakpoints)
}

// Predict evaluates the model at each x value, preserving input order.
// Values beyond the fitted domain are extrapolated with the first or last
// segment's line.
func (m *Model) Predict(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, xv := range x {
		seg := m.segmentFor(xv)
		out[i] = m.Slopes[seg]*xv + m.Intercepts[seg]
	}
	return out
}

func (m *Model) segmentFor(xv float64) int {
	if m.NSegments == 1 || xv <= m.Breakpoints[1] {
		return 0
	}
	if xv > m.Breakpoints[m.NSegments-1] {
		return m.NSegments - 1
	}
	for i := 1; i < m.NSegments-1; i++ {
		if xv > m.Breakpoints[i] && xv <= m.Breakpoints[i+1] {
			return i
		}
	}
	return m.NSegments - 1
}

// Options adjusts a fit. The zero value means auto-selected breakpoints
// with the default solver.
type Options struct {
	// Breakpoints fixes the full breakpoint array (length nSegments+1,
	// strictly increasing) instead of optimizing locations
	Breakpoints []float64

	// Solver overrides the numerical backend
	Solver Solver
}

// DefaultSolver is the backend used when Options.Solver is nil. Setting it
// to nil makes Fit return ErrSolverUnavailable.
var DefaultSolver Solver = GonumSolver{}

// Fit fits a piecewise-linear model with nSegments line segments. Rows with
// a non-finite x or y are dropped before fitting; at least nSegments+1
// finite pairs must remain. R-squared and RMSE are computed against the
// full cleaned dataset.
func Fit(x, y []float64, nSegments int, opts *Options) (*Model, error) {
	solver := DefaultSolver
	var fixed []float64
	if opts != nil {
		if opts.Solver != nil {
			solver = opts.Solver
		}
		fixed = opts.Breakpoints
	}
	if solver == nil {
		return nil, ErrSolverUnavailable
	}

	if len(x) != len(y) {
		return nil, fmt.Errorf("x and y must have same length (got %d and %d)", len(x), len(y))
	}
	if nSegments < 1 {
		return nil, fmt.Errorf("need at least 1 segment (got %d)", nSegments)
	}

	cx, cy := dropNonFinite(x, y)
	if len(cx) < nSegments+1 {
		return nil, fmt.Errorf("need at least %d data points for %d segments (got %d)",
			nSegments+1, nSegments, len(cx))
	}

	if fixed != nil {
		if len(fixed) != nSegments+1 {
			return nil, fmt.Errorf("breakpoint array must have %d entries for %d segments (got %d)",
				nSegments+1, nSegments, len(fixed))
		}
		for i := 0; i+1 < len(fixed); i++ {
			if fixed[i] >= fixed[i+1] {
				return nil, fmt.Errorf("breakpoints must be strictly increasing")
			}
		}
	}

	log.Debugf("fitting %d-segment regression to %d data points", nSegments, len(cx))

	breaks, slopes, intercepts, err := solver.FitPiecewise(cx, cy, nSegments, fixed)
	if err != nil {
		return nil, fmt.Errorf("piecewise fit failed: %w", err)
	}

	m := &Model{
		Breakpoints: breaks,
		Slopes:      slopes,
		Intercepts:  intercepts,
		NSegments:   nSegments,
	}

	pred := m.Predict(cx)
	ssRes, ssTot := 0.0, 0.0
	mean := 0.0
	for _, v := range cy {
		mean += v
	}
	mean /= float64(len(cy))
	for i := range cy {
		d := cy[i] - pred[i]
		ssRes += d * d
		t := cy[i] - mean
		ssTot += t * t
	}
	if ssTot > 0 {
		m.RSquared = 1 - ssRes/ssTot
	} else {
		m.RSquared = 1
	}
	m.RMSE = math.Sqrt(ssRes / float64(len(cy)))

	log.Debugf("fit complete: R2 = %.4f, RMSE = %.4f", m.RSquared, m.RMSE)
	return m, nil
}

// OptimalSegmentCount fits models with 1..maxSegments segments and picks
// the smallest count whose successor improves R-squared by less than the
// elbow threshold. When every improvement clears the threshold, the count
// is maxSegments. The per-count R-squared values are returned alongside.
func OptimalSegmentCount(x, y []float64, maxSegments int) (int, []float64, error) {
	rsq := make([]float64, 0, maxSegments)
	for n := 1; n <= maxSegments; n++ {
		m, err := Fit(x, y, n, nil)
		if err != nil {
			return 0, nil, fmt.Errorf("fit with %d segments: %w", n, err)
		}
		rsq = append(rsq, m.RSquared)
		log.Debugf("%d segments: R2 = %.4f", n, m.RSquared)
	}

	for i := 0; i+1 < len(rsq); i++ {
		if rsq[i+1]-rsq[i] < elbowThreshold {
			return i + 1, rsq, nil
		}
	}
	return maxSegments, rsq, nil
}

func dropNonFinite(x, y []float64) ([]float64, []float64) {
	cx := make([]float64, 0, len(x))
	cy := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		cx = append(cx, x[i])
		cy = append(cy, y[i])
	}
	return cx, cy
}
