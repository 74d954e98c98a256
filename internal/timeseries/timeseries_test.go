package timeseries

import (
	"math"
	"testing"
	"time"
)

var base = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

// hourly builds a series with one point per hour starting at base
func hourly(values ...float64) Series {
	s := make(Series, len(values))
	for i, v := range values {
		s[i] = Point{Time: base.Add(time.Duration(i) * time.Hour), Value: v}
	}
	return s
}

func TestWindow(t *testing.T) {
	s := hourly(1, 2, 3, 4, 5)

	tests := []struct {
		name     string
		from     time.Time
		to       time.Time
		expected []float64
	}{
		{
			name:     "full range",
			from:     base,
			to:       base.Add(4 * time.Hour),
			expected: []float64{1, 2, 3, 4, 5},
		},
		{
			name:     "inclusive on both ends",
			from:     base.Add(1 * time.Hour),
			to:       base.Add(3 * time.Hour),
			expected: []float64{2, 3, 4},
		},
		{
			name:     "empty window",
			from:     base.Add(10 * time.Hour),
			to:       base.Add(20 * time.Hour),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Window(s, tt.from, tt.to)
			if len(out) != len(tt.expected) {
				t.Fatalf("expected %d points, got %d", len(tt.expected), len(out))
			}
			for i, p := range out {
				if p.Value != tt.expected[i] {
					t.Errorf("point %d: expected %.1f, got %.1f", i, tt.expected[i], p.Value)
				}
			}
		})
	}
}

func TestShift(t *testing.T) {
	s := hourly(1, 2)

	shifted := Shift(s, -2*time.Hour)
	if !shifted[0].Time.Equal(base.Add(-2 * time.Hour)) {
		t.Errorf("expected first point at %s, got %s", base.Add(-2*time.Hour), shifted[0].Time)
	}
	if shifted[1].Value != 2 {
		t.Errorf("expected value preserved, got %.1f", shifted[1].Value)
	}

	// Input series must be untouched
	if !s[0].Time.Equal(base) {
		t.Error("Shift modified the input series")
	}
}

func TestAlignSeries(t *testing.T) {
	a := Series{
		{Time: base, Value: 1},
		{Time: base.Add(1 * time.Hour), Value: 2},
		{Time: base.Add(3 * time.Hour), Value: 4},
	}
	b := Series{
		{Time: base.Add(1 * time.Hour), Value: 20},
		{Time: base.Add(2 * time.Hour), Value: 30},
		{Time: base.Add(3 * time.Hour), Value: 40},
	}

	av, bv := AlignSeries(a, b)
	if len(av) != 2 || len(bv) != 2 {
		t.Fatalf("expected 2 aligned pairs, got %d and %d", len(av), len(bv))
	}
	if av[0] != 2 || bv[0] != 20 {
		t.Errorf("first pair: expected (2, 20), got (%.1f, %.1f)", av[0], bv[0])
	}
	if av[1] != 4 || bv[1] != 40 {
		t.Errorf("second pair: expected (4, 40), got (%.1f, %.1f)", av[1], bv[1])
	}
}

func TestRegrid(t *testing.T) {
	tests := []struct {
		name     string
		series   Series
		step     time.Duration
		expected []float64 // NaN marks an expected gap
	}{
		{
			name:     "empty series",
			series:   nil,
			step:     time.Hour,
			expected: nil,
		},
		{
			name: "mean aggregation within bucket",
			series: Series{
				{Time: base, Value: 5},
				{Time: base.Add(30 * time.Minute), Value: 7},
				{Time: base.Add(time.Hour), Value: 9},
			},
			step:     time.Hour,
			expected: []float64{6, 9},
		},
		{
			name: "interior gap becomes NaN",
			series: Series{
				{Time: base, Value: 1},
				{Time: base.Add(3 * time.Hour), Value: 4},
			},
			step:     time.Hour,
			expected: []float64{1, math.NaN(), math.NaN(), 4},
		},
		{
			name: "daily buckets align to calendar days",
			series: Series{
				{Time: base.Add(6 * time.Hour), Value: 10},
				{Time: base.Add(18 * time.Hour), Value: 12},
				{Time: base.Add(30 * time.Hour), Value: 14},
			},
			step:     24 * time.Hour,
			expected: []float64{11, 14},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Regrid(tt.series, tt.step)
			if g.Len() != len(tt.expected) {
				t.Fatalf("expected %d grid steps, got %d", len(tt.expected), g.Len())
			}
			for i, want := range tt.expected {
				got := g.Values[i]
				if math.IsNaN(want) != math.IsNaN(got) {
					t.Errorf("step %d: expected NaN=%v, got %.2f", i, math.IsNaN(want), got)
					continue
				}
				if !math.IsNaN(want) && math.Abs(got-want) > 1e-9 {
					t.Errorf("step %d: expected %.2f, got %.2f", i, want, got)
				}
			}
		})
	}
}

func TestRegridBucketTimes(t *testing.T) {
	s := Series{{Time: base.Add(90 * time.Minute), Value: 3}}
	g := Regrid(s, time.Hour)

	if !g.Start.Equal(base.Add(time.Hour)) {
		t.Errorf("expected grid start %s, got %s", base.Add(time.Hour), g.Start)
	}
	if !g.TimeAt(0).Equal(g.Start) {
		t.Errorf("TimeAt(0) should equal Start, got %s", g.TimeAt(0))
	}
}

func TestInterpolate(t *testing.T) {
	g := Grid{
		Start: base,
		Step:  time.Hour,
		Values: []float64{
			math.NaN(), 2, math.NaN(), math.NaN(), 8, math.NaN(),
		},
	}

	out := g.Interpolate()

	// Interior gap filled linearly
	if math.Abs(out.Values[2]-4) > 1e-9 || math.Abs(out.Values[3]-6) > 1e-9 {
		t.Errorf("expected interior fill (4, 6), got (%.2f, %.2f)", out.Values[2], out.Values[3])
	}

	// Leading and trailing gaps stay NaN
	if !math.IsNaN(out.Values[0]) {
		t.Errorf("leading gap should stay NaN, got %.2f", out.Values[0])
	}
	if !math.IsNaN(out.Values[5]) {
		t.Errorf("trailing gap should stay NaN, got %.2f", out.Values[5])
	}

	// Input untouched
	if !math.IsNaN(g.Values[2]) {
		t.Error("Interpolate modified the input grid")
	}
}

func TestDiff(t *testing.T) {
	g := Grid{
		Start:  base,
		Step:   time.Hour,
		Values: []float64{1, 2, 4, math.NaN(), 8},
	}

	out := g.Diff(2)

	if !math.IsNaN(out.Values[0]) || !math.IsNaN(out.Values[1]) {
		t.Error("leading entries should be NaN")
	}
	if math.Abs(out.Values[2]-3) > 1e-9 {
		t.Errorf("expected 3 at index 2, got %.2f", out.Values[2])
	}
	// Missing operand on either side propagates
	if !math.IsNaN(out.Values[3]) {
		t.Errorf("expected NaN at index 3, got %.2f", out.Values[3])
	}
	if math.Abs(out.Values[4]-4) > 1e-9 {
		t.Errorf("expected 4 at index 4, got %.2f", out.Values[4])
	}
}

func TestRollingRange(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		window   int
		expected []float64
	}{
		{
			name:     "basic trailing range",
			values:   []float64{1, 3, 2, 6, 4},
			window:   3,
			expected: []float64{math.NaN(), math.NaN(), 2, 4, 4},
		},
		{
			name:     "gap inside window yields NaN",
			values:   []float64{1, math.NaN(), 2, 5, 7},
			window:   3,
			expected: []float64{math.NaN(), math.NaN(), math.NaN(), math.NaN(), 5},
		},
		{
			name:     "flat series has zero range",
			values:   []float64{5, 5, 5},
			window:   3,
			expected: []float64{math.NaN(), math.NaN(), 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Grid{Start: base, Step: 24 * time.Hour, Values: tt.values}
			out := g.RollingRange(tt.window)
			for i, want := range tt.expected {
				got := out.Values[i]
				if math.IsNaN(want) != math.IsNaN(got) {
					t.Errorf("index %d: expected NaN=%v, got %.2f", i, math.IsNaN(want), got)
					continue
				}
				if !math.IsNaN(want) && math.Abs(got-want) > 1e-9 {
					t.Errorf("index %d: expected %.2f, got %.2f", i, want, got)
				}
			}
		})
	}
}

func TestAlignGrids(t *testing.T) {
	a := Grid{Start: base, Step: time.Hour, Values: []float64{1, 2, math.NaN(), 4}}
	b := Grid{Start: base.Add(time.Hour), Step: time.Hour, Values: []float64{20, 30, 40}}

	av, bv := AlignGrids(a, b)

	// Overlap is hours 1..3 of a; hour 2 drops for a's NaN
	if len(av) != 2 {
		t.Fatalf("expected 2 aligned pairs, got %d", len(av))
	}
	if av[0] != 2 || bv[0] != 20 {
		t.Errorf("first pair: expected (2, 20), got (%.1f, %.1f)", av[0], bv[0])
	}
	if av[1] != 4 || bv[1] != 40 {
		t.Errorf("second pair: expected (4, 40), got (%.1f, %.1f)", av[1], bv[1])
	}
}

func TestAlignGridsMismatchedSteps(t *testing.T) {
	a := Grid{Start: base, Step: time.Hour, Values: []float64{1, 2}}
	b := Grid{Start: base, Step: 30 * time.Minute, Values: []float64{1, 2}}

	av, bv := AlignGrids(a, b)
	if av != nil || bv != nil {
		t.Error("expected nil for mismatched grid steps")
	}
}
