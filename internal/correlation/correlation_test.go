package correlation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/floodwatch/floodwatch/internal/timeseries"
)

var base = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

// hourlySeries builds an hourly series from a value function
func hourlySeries(n int, f func(i int) float64) timeseries.Series {
	s := make(timeseries.Series, n)
	for i := 0; i < n; i++ {
		s[i] = timeseries.Point{Time: base.Add(time.Duration(i) * time.Hour), Value: f(i)}
	}
	return s
}

func TestFindOptimalLag(t *testing.T) {
	// A slow stage wave plus incoherent high-frequency noise on each
	// gauge. The downstream gauge sees the wave lagHours later.
	const n = 800
	const period = 100.0

	tests := []struct {
		name     string
		lagHours int
	}{
		{"downstream leads by 48h", -48},
		{"downstream leads by 24h", -24},
		{"downstream leads by 6h", -6},
		{"no lag", 0},
		{"downstream trails by 6h", 6},
		{"downstream trails by 12h", 12},
		{"downstream trails by 24h", 24},
		{"downstream trails by 36h", 36},
		{"downstream trails by 48h", 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := hourlySeries(n, func(i int) float64 {
				return 10 + 5*math.Sin(2*math.Pi*float64(i)/period) + 0.3*math.Sin(2.1*float64(i))
			})
			downstream := hourlySeries(n, func(i int) float64 {
				return 9 + 4*math.Sin(2*math.Pi*float64(i-tt.lagHours)/period) + 0.3*math.Sin(1.7*float64(i)+0.5)
			})

			lag := FindOptimalLag(upstream, downstream, 48)
			if d := lag - tt.lagHours; d < -1 || d > 1 {
				t.Errorf("expected lag %d ± 1 hours, got %d", tt.lagHours, lag)
			}
		})
	}
}

func TestFindOptimalLagEmptyOverlap(t *testing.T) {
	a := hourlySeries(24, func(i int) float64 { return float64(i) })
	b := timeseries.Series{{Time: base.Add(1000 * time.Hour), Value: 1}}

	if lag := FindOptimalLag(a, b, 48); lag != 0 {
		t.Errorf("expected lag 0 for disjoint series, got %d", lag)
	}
}

func TestCorrelateAutoLag(t *testing.T) {
	// The downstream gauge sees the same stage wave 12 hours later with
	// its own noise; Correlate must find the lag itself and carry it
	// into the result.
	const n = 800
	const lag = 12
	const period = 100.0

	upstream := hourlySeries(n, func(i int) float64 {
		return 10 + 5*math.Sin(2*math.Pi*float64(i)/period) + 0.3*math.Sin(2.1*float64(i))
	})
	downstream := hourlySeries(n, func(i int) float64 {
		return 9 + 4*math.Sin(2*math.Pi*float64(i-lag)/period) + 0.3*math.Sin(1.7*float64(i)+0.5)
	})

	res, err := Correlate(upstream, downstream, 48)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.LagHours != lag {
		t.Errorf("expected detected lag %d, got %d", lag, res.LagHours)
	}
	if res.SampleSize != n-lag {
		t.Errorf("expected %d aligned pairs after the shift, got %d", n-lag, res.SampleSize)
	}
	if res.PearsonR < 0.99 {
		t.Errorf("expected strong correlation at the detected lag, got r = %.4f", res.PearsonR)
	}
	// The downstream wave is 4/5 the upstream amplitude
	if math.Abs(res.Slope-0.8) > 0.05 {
		t.Errorf("expected slope near 0.8, got %.4f", res.Slope)
	}
}

func TestCorrelateAtLag(t *testing.T) {
	// Downstream is an exact linear function of upstream 12 hours earlier
	const n = 120
	const lag = 12

	upstream := hourlySeries(n, func(i int) float64 {
		return 10 + 3*math.Sin(0.2*float64(i))
	})
	downstream := make(timeseries.Series, n)
	for i := range downstream {
		downstream[i] = timeseries.Point{
			Time:  base.Add(time.Duration(i+lag) * time.Hour),
			Value: 2*upstream[i].Value + 1,
		}
	}

	res, err := CorrelateAtLag(upstream, downstream, lag)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.SampleSize != n {
		t.Errorf("expected %d aligned pairs, got %d", n, res.SampleSize)
	}
	if res.LagHours != lag {
		t.Errorf("expected lag %d, got %d", lag, res.LagHours)
	}
	if math.Abs(res.PearsonR-1) > 1e-9 {
		t.Errorf("expected r = 1 for exact linear relation, got %.6f", res.PearsonR)
	}
	if math.Abs(res.RSquared-1) > 1e-9 {
		t.Errorf("expected R2 = 1, got %.6f", res.RSquared)
	}
	if math.Abs(res.Slope-2) > 1e-6 {
		t.Errorf("expected slope 2, got %.6f", res.Slope)
	}
	if math.Abs(res.Intercept-1) > 1e-6 {
		t.Errorf("expected intercept 1, got %.6f", res.Intercept)
	}
	if res.PValue > 1e-6 {
		t.Errorf("expected vanishing p-value, got %g", res.PValue)
	}
}

func TestCorrelateInsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		points  int
		wantErr bool
	}{
		{"nine pairs fails", 9, true},
		{"ten pairs succeeds", 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := hourlySeries(tt.points, func(i int) float64 { return float64(i) })
			down := hourlySeries(tt.points, func(i int) float64 { return 2*float64(i) + 3 })

			_, err := CorrelateAtLag(up, down, 0)
			if tt.wantErr {
				if !errors.Is(err, ErrInsufficientData) {
					t.Errorf("expected ErrInsufficientData, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestIndependentSeriesNotSignificant(t *testing.T) {
	// Two incommensurate oscillations share no linear relationship
	const n = 200
	x := hourlySeries(n, func(i int) float64 { return math.Sin(0.91 * float64(i)) })
	y := hourlySeries(n, func(i int) float64 { return math.Sin(1.37*float64(i) + 0.77) })

	res, err := CorrelateAtLag(x, y, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(res.PearsonR) > 0.1 {
		t.Errorf("expected |r| near zero, got %.4f", res.PearsonR)
	}
	if res.PValue < 0.5 {
		t.Errorf("expected insignificant p-value, got %.4f", res.PValue)
	}
}

func TestPredictDownstream(t *testing.T) {
	res := Result{Slope: 2, Intercept: 1, LagHours: 5}

	v, lag := PredictDownstream(8, res)
	if v != 17 {
		t.Errorf("expected prediction 17, got %.2f", v)
	}
	if lag != 5 {
		t.Errorf("expected lag 5, got %d", lag)
	}
}

func TestAnalyzeNetwork(t *testing.T) {
	const n = 120
	upstream := hourlySeries(n, func(i int) float64 { return 10 + 3*math.Sin(0.2*float64(i)) })
	midstream := hourlySeries(n, func(i int) float64 { return 8 + 2*math.Sin(0.2*float64(i)) })
	// Too short to correlate
	tail := hourlySeries(5, func(i int) float64 { return float64(i) })

	data := map[string]timeseries.Series{
		"UP": upstream,
		"MD": midstream,
		"DN": tail,
	}

	results := AnalyzeNetwork(data, []string{"UP", "MD", "DN"}, 12)

	// The failing MD->DN pair is skipped, not fatal
	if len(results) != 1 {
		t.Fatalf("expected 1 successful pair, got %d", len(results))
	}
	if results[0].Upstream != "UP" || results[0].Downstream != "MD" {
		t.Errorf("expected UP->MD pair, got %s->%s", results[0].Upstream, results[0].Downstream)
	}
	if results[0].SampleSize == 0 {
		t.Error("expected a populated correlation result")
	}
}
