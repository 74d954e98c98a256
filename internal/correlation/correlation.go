// Package correlation measures lagged relationships between upstream and
// downstream gauge series: propagation delay, Pearson correlation, and the
// linear fit used to project downstream readings.
package correlation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/floodwatch/floodwatch/internal/log"
	"github.com/floodwatch/floodwatch/internal/timeseries"
)

// MinSamplePairs is the minimum number of time-aligned observation pairs
// required to produce a correlation result
const MinSamplePairs = 10

// ErrInsufficientData indicates fewer aligned pairs than MinSamplePairs.
// Callers can branch on it to skip a station pair rather than abort.
var ErrInsufficientData = errors.New("insufficient overlapping data points")

// Result holds the outcome of aligning two series at a chosen lag
type Result struct {
	PearsonR   float64
	PValue     float64
	LagHours   int
	RSquared   float64
	Slope      float64
	Intercept  float64
	SampleSize int
}

func (r Result) String() string {
	return fmt.Sprintf("r = %.3f (p = %.4f), lag = %dh, R2 = %.3f, y = %.3fx + %.2f, n = %d",
		r.PearsonR, r.PValue, r.LagHours, r.RSquared, r.Slope, r.Intercept, r.SampleSize)
}

// Correlate measures the relationship between an upstream and a downstream
// series, auto-detecting the propagation lag first
func Correlate(upstream, downstream timeseries.Series, maxLagHours int) (Result, error) {
	lag := FindOptimalLag(upstream, downstream, maxLagHours)
	return CorrelateAtLag(upstream, downstream, lag)
}

// CorrelateAtLag shifts the downstream series back by the given lag,
// inner-joins the two series on timestamp, and fits the aligned pairs.
// Returns ErrInsufficientData when fewer than MinSamplePairs remain.
func CorrelateAtLag(upstream, downstream timeseries.Series, lagHours int) (Result, error) {
	shifted := timeseries.Shift(downstream, -time.Duration(lagHours)*time.Hour)
	uv, dv := timeseries.AlignSeries(upstream, shifted)

	if len(uv) < MinSamplePairs {
		return Result{}, fmt.Errorf("%w: %d aligned pairs, need %d",
			ErrInsufficientData, len(uv), MinSamplePairs)
	}

	r := stat.Correlation(uv, dv, nil)
	intercept, slope := stat.LinearRegression(uv, dv, nil, false)

	log.Debugf("correlation: r = %.3f, lag = %dh, n = %d", r, lagHours, len(uv))

	return Result{
		PearsonR:   r,
		PValue:     pearsonPValue(r, len(uv)),
		LagHours:   lagHours,
		RSquared:   r * r,
		Slope:      slope,
		Intercept:  intercept,
		SampleSize: len(uv),
	}, nil
}

// PredictDownstream projects a downstream value from an upstream reading
// using a previously fitted result. No range validation is performed; the
// caller is responsible for staying within the fitted domain. The second
// return value is the lag, in hours, at which the prediction applies.
func PredictDownstream(upstreamValue float64, r Result) (float64, int) {
	return r.Slope*upstreamValue + r.Intercept, r.LagHours
}

// PairResult is the correlation outcome for one adjacent station pair
type PairResult struct {
	Upstream   string
	Downstream string
	Result
}

// AnalyzeNetwork correlates each adjacent pair in an upstream-to-downstream
// station chain. Per-pair failures are logged and skipped; the sweep always
// returns whatever pairs succeeded.
func AnalyzeNetwork(data map[string]timeseries.Series, order []string, maxLagHours int) []PairResult {
	var results []PairResult
	for i := 0; i+1 < len(order); i++ {
		up, down := order[i], order[i+1]
		log.Infof("analyzing %s -> %s", up, down)

		res, err := Correlate(data[up], data[down], maxLagHours)
		if err != nil {
			log.Errorf("error analyzing %s -> %s: %v", up, down, err)
			continue
		}

		results = append(results, PairResult{Upstream: up, Downstream: down, Result: res})
	}
	return results
}

// pearsonPValue computes the two-tailed significance of a Pearson
// correlation via the Student's t transform
func pearsonPValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.CDF(-math.Abs(t))
}
