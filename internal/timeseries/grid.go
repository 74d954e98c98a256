package timeseries

import (
	"math"
	"time"
)

// Grid is a series resampled onto a fixed-interval grid. Values holds one
// entry per step; NaN marks a step with no observation.
type Grid struct {
	Start  time.Time
	Step   time.Duration
	Values []float64
}

// Len returns the number of grid steps
func (g Grid) Len() int {
	return len(g.Values)
}

// TimeAt returns the timestamp of grid index i
func (g Grid) TimeAt(i int) time.Time {
	return g.Start.Add(time.Duration(i) * g.Step)
}

// Missing reports whether grid index i has no value
func (g Grid) Missing(i int) bool {
	return math.IsNaN(g.Values[i])
}

// Regrid buckets a series onto a fixed-interval grid using arithmetic-mean
// aggregation. Bucket boundaries are aligned to UTC, so a 24-hour step
// produces calendar days. Empty buckets between the first and last
// observation are NaN.
func Regrid(s Series, step time.Duration) Grid {
	if len(s) == 0 {
		return Grid{Step: step}
	}

	start := s[0].Time.UTC().Truncate(step)
	end := s[len(s)-1].Time.UTC().Truncate(step)
	n := int(end.Sub(start)/step) + 1

	sums := make([]float64, n)
	counts := make([]int, n)
	for _, p := range s {
		i := int(p.Time.UTC().Truncate(step).Sub(start) / step)
		sums[i] += p.Value
		counts[i]++
	}

	values := make([]float64, n)
	for i := range values {
		if counts[i] == 0 {
			values[i] = math.NaN()
		} else {
			values[i] = sums[i] / float64(counts[i])
		}
	}

	return Grid{Start: start, Step: step, Values: values}
}

// Interpolate fills interior gaps by linear interpolation between the
// nearest finite neighbors. Gaps before the first or after the last finite
// value are left as NaN.
func (g Grid) Interpolate() Grid {
	out := Grid{Start: g.Start, Step: g.Step, Values: make([]float64, len(g.Values))}
	copy(out.Values, g.Values)

	prev := -1 // index of last finite value seen
	for i, v := range g.Values {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			span := float64(i - prev)
			for j := prev + 1; j < i; j++ {
				frac := float64(j-prev) / span
				out.Values[j] = g.Values[prev] + frac*(v-g.Values[prev])
			}
		}
		prev = i
	}
	return out
}

// Diff returns the k-step finite difference v[i] - v[i-k]. The leading k
// entries are NaN, as is any entry whose operands are missing.
func (g Grid) Diff(k int) Grid {
	out := Grid{Start: g.Start, Step: g.Step, Values: make([]float64, len(g.Values))}
	for i := range g.Values {
		if i < k || math.IsNaN(g.Values[i]) || math.IsNaN(g.Values[i-k]) {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = g.Values[i] - g.Values[i-k]
	}
	return out
}

// Scale multiplies every finite value by f
func (g Grid) Scale(f float64) Grid {
	out := Grid{Start: g.Start, Step: g.Step, Values: make([]float64, len(g.Values))}
	for i, v := range g.Values {
		out.Values[i] = v * f
	}
	return out
}

// RollingRange computes the trailing rolling max-minus-min over full windows
// of the given size. Entries with insufficient history, or with any missing
// value inside the window, are NaN.
func (g Grid) RollingRange(window int) Grid {
	out := Grid{Start: g.Start, Step: g.Step, Values: make([]float64, len(g.Values))}
	for i := range g.Values {
		if i < window-1 {
			out.Values[i] = math.NaN()
			continue
		}
		lo, hi := math.Inf(1), math.Inf(-1)
		complete := true
		for j := i - window + 1; j <= i; j++ {
			v := g.Values[j]
			if math.IsNaN(v) {
				complete = false
				break
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if !complete {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = hi - lo
	}
	return out
}

// AlignGrids inner-joins two grids with identical steps, returning paired
// values at timestamps where both grids hold a finite value
func AlignGrids(a, b Grid) (av, bv []float64) {
	if a.Step != b.Step || a.Step == 0 {
		return nil, nil
	}
	offset := b.Start.Sub(a.Start)
	if offset%a.Step != 0 {
		return nil, nil
	}
	shift := int(offset / a.Step)

	for i := range a.Values {
		j := i - shift
		if j < 0 || j >= len(b.Values) {
			continue
		}
		if math.IsNaN(a.Values[i]) || math.IsNaN(b.Values[j]) {
			continue
		}
		av = append(av, a.Values[i])
		bv = append(bv, b.Values[j])
	}
	return av, bv
}
