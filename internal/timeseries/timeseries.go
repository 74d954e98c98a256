// Package timeseries provides ordered gauge-observation sequences and the
// resampling and alignment helpers shared by the analysis packages.
package timeseries

import (
	"time"
)

// Point is a single timestamped observation
type Point struct {
	Time  time.Time
	Value float64
}

// Series is an ordered sequence of observations with strictly increasing
// timestamps. Missing readings are absent points, never zeros.
type Series []Point

// Window returns the portion of the series within [from, to], inclusive on
// both ends
func Window(s Series, from, to time.Time) Series {
	var out Series
	for _, p := range s {
		if p.Time.Before(from) || p.Time.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Shift returns a copy of the series with every timestamp moved by d.
// A negative d moves observations earlier in time.
func Shift(s Series, d time.Duration) Series {
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Time: p.Time.Add(d), Value: p.Value}
	}
	return out
}

// AlignSeries inner-joins two series on exact timestamps, returning the
// paired values in time order. Timestamps present in only one series are
// dropped.
func AlignSeries(a, b Series) (av, bv []float64) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Time.Equal(b[j].Time):
			av = append(av, a[i].Value)
			bv = append(bv, b[j].Value)
			i++
			j++
		case a[i].Time.Before(b[j].Time):
			i++
		default:
			j++
		}
	}
	return av, bv
}
