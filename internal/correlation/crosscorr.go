package correlation

import (
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/floodwatch/floodwatch/internal/log"
	"github.com/floodwatch/floodwatch/internal/timeseries"
)

// crossCorrelation computes C(m) = sum_i a[i]*b[i-m] for lags m in
// [-(n-1), n-1], via FFT. C(m) sits at index m+n-1 of the returned slice.
// A positive lag at the maximum means a trails b by m steps.
func crossCorrelation(a, b []float64) []float64 {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil
	}

	// Zero-pad to a power of two at least 2n-1 so the circular
	// correlation is linear over the lag range of interest.
	size := 1
	for size < 2*n-1 {
		size <<= 1
	}

	fft := fourier.NewFFT(size)
	ap := make([]float64, size)
	bp := make([]float64, size)
	copy(ap, a)
	copy(bp, b)

	ac := fft.Coefficients(nil, ap)
	bc := fft.Coefficients(nil, bp)
	for i := range ac {
		ac[i] *= cmplx.Conj(bc[i])
	}
	c := fft.Sequence(nil, ac)

	out := make([]float64, 2*n-1)
	for m := -(n - 1); m <= n-1; m++ {
		out[m+n-1] = c[(m+size)%size] / float64(size)
	}
	return out
}

// FindOptimalLag finds the time lag, in hours, that maximizes the
// cross-correlation between the two series after hourly resampling. A
// positive result means the downstream series trails the upstream one.
// Fewer overlapping points than the search radius only degrades
// confidence; the search still runs.
func FindOptimalLag(upstream, downstream timeseries.Series, maxLagHours int) int {
	u := timeseries.Regrid(upstream, time.Hour)
	d := timeseries.Regrid(downstream, time.Hour)
	uv, dv := timeseries.AlignGrids(u, d)

	n := len(uv)
	if n == 0 {
		return 0
	}
	if n < maxLagHours {
		log.Warnf("only %d overlapping points, lag detection may be unreliable", n)
	}

	um := stat.Mean(uv, nil)
	dm := stat.Mean(dv, nil)
	for i := range uv {
		uv[i] -= um
		dv[i] -= dm
	}

	scores := crossCorrelation(dv, uv)

	search := maxLagHours
	if half := n / 2; half < search {
		search = half
	}

	best := math.Inf(-1)
	bestLag := -search
	for m := -search; m < search; m++ {
		if v := scores[m+n-1]; v > best {
			best = v
			bestLag = m
		}
	}

	log.Debugf("optimal lag: %d hours", bestLag)
	return bestLag
}
