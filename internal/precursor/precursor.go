// Package precursor detects early-warning signals in river gauge data
// before flood peaks: rapid stage rises and sustained multi-day rises.
package precursor

import (
	"fmt"
	"sort"
	"time"

	"github.com/floodwatch/floodwatch/internal/log"
	"github.com/floodwatch/floodwatch/internal/timeseries"
)

// Kind identifies the type of a detected precursor condition
type Kind string

const (
	RapidRise     Kind = "rapid_rise"
	SustainedRise Kind = "sustained_rise"
)

// Severity classifies the magnitude of a precursor event
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
)

// Severity bands. Rates are in ft/day, rises in total ft. Overridable per
// deployment through DetectorParams.
const (
	defaultMajorRate    = 2.0
	defaultModerateRate = 1.0
	defaultMajorRise    = 6.0
	defaultModerateRise = 4.0
)

// Event is a detected precursor condition. Immutable once created except
// for HoursBeforePeak, which Analyze fills in relative to the flood peak.
type Event struct {
	Kind            Kind
	DetectedAt      time.Time
	Magnitude       float64
	Severity        Severity
	HoursBeforePeak float64
	Description     string
}

func (e Event) String() string {
	return fmt.Sprintf("%s (%s) at %s: %s, %.1f hours before peak",
		e.Kind, e.Severity, e.DetectedAt.Format("2006-01-02 15:04"),
		e.Description, e.HoursBeforePeak)
}

// DetectorParams defines thresholds and windows for precursor detection
type DetectorParams struct {
	// RateWindowHours is the finite-difference window for rise-rate
	// computation on the hourly grid
	RateWindowHours int

	// RapidRiseThreshold is the minimum rise rate to flag, in ft/day
	RapidRiseThreshold float64

	// MinDurationHours is the minimum sustained duration for a rapid
	// rise run to count as an event
	MinDurationHours int

	// SustainedRiseThreshold is the minimum total rise over the rolling
	// window, in ft
	SustainedRiseThreshold float64

	// SustainedWindowDays is the rolling window for sustained-rise
	// detection
	SustainedWindowDays int

	// LookbackDays bounds the analysis window before a flood peak
	LookbackDays int

	// MajorRate and ModerateRate are the rapid-rise severity bands
	// (ft/day); MajorRise and ModerateRise are the sustained-rise bands
	// (ft)
	MajorRate    float64
	ModerateRate float64
	MajorRise    float64
	ModerateRise float64
}

// DefaultDetectorParams returns the standard detection thresholds
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		RateWindowHours:        6,
		RapidRiseThreshold:     0.5,
		MinDurationHours:       3,
		SustainedRiseThreshold: 2.0,
		SustainedWindowDays:    7,
		LookbackDays:           14,
		MajorRate:              defaultMajorRate,
		ModerateRate:           defaultModerateRate,
		MajorRise:              defaultMajorRise,
		ModerateRise:           defaultModerateRise,
	}
}

const hoursPerDay = 24.0

// RiseRate computes the stage rise rate in ft/day. The series is resampled
// to an hourly grid (mean aggregation, linear interpolation across gaps),
// differenced over windowHours steps, and scaled to a per-day rate. The
// leading windowHours entries are NaN: there is no prior value to
// difference against.
func RiseRate(stage timeseries.Series, windowHours int) timeseries.Grid {
	hourly := timeseries.Regrid(stage, time.Hour).Interpolate()
	return hourly.Diff(windowHours).Scale(hoursPerDay / float64(windowHours))
}

// DetectRapidRise finds maximal runs of hourly samples whose rise rate
// exceeds the threshold. Runs shorter than the minimum duration are
// discarded; a run still open at the end of the series is never emitted,
// only closed intervals count.
func DetectRapidRise(stage timeseries.Series, params DetectorParams) []Event {
	rate := RiseRate(stage, params.RateWindowHours)

	var events []Event
	inRun := false
	var runStart int
	var runMax float64

	for i := 0; i < rate.Len(); i++ {
		exceeds := !rate.Missing(i) && rate.Values[i] > params.RapidRiseThreshold
		switch {
		case exceeds && !inRun:
			inRun = true
			runStart = i
			runMax = rate.Values[i]
		case exceeds:
			if rate.Values[i] > runMax {
				runMax = rate.Values[i]
			}
		case inRun:
			inRun = false
			duration := rate.TimeAt(i).Sub(rate.TimeAt(runStart)).Hours()
			if duration < float64(params.MinDurationHours) {
				continue
			}
			events = append(events, Event{
				Kind:       RapidRise,
				DetectedAt: rate.TimeAt(runStart),
				Magnitude:  runMax,
				Severity:   classifyRate(runMax, params),
				Description: fmt.Sprintf("Rapid rise of %.2f ft/day for %.1f hours",
					runMax, duration),
			})
		}
	}

	log.Debugf("detected %d rapid rise events", len(events))
	return events
}

// DetectSustainedRise finds days where the total rise over a rolling
// window exceeds the threshold. Rolling windows must be complete; partial
// windows never trigger. Only the first day of each qualifying run emits
// an event (rising-edge detection).
func DetectSustainedRise(stage timeseries.Series, params DetectorParams) []Event {
	daily := timeseries.Regrid(stage, hoursPerDay*time.Hour)
	rise := daily.RollingRange(params.SustainedWindowDays)

	var events []Event
	prev := false
	for i := 0; i < rise.Len(); i++ {
		flag := !rise.Missing(i) && rise.Values[i] > params.SustainedRiseThreshold
		if flag && !prev {
			v := rise.Values[i]
			events = append(events, Event{
				Kind:       SustainedRise,
				DetectedAt: rise.TimeAt(i),
				Magnitude:  v,
				Severity:   classifyRise(v, params),
				Description: fmt.Sprintf("Sustained rise of %.2f ft over %d days",
					v, params.SustainedWindowDays),
			})
		}
		prev = flag
	}

	log.Debugf("detected %d sustained rise events", len(events))
	return events
}

// Analyze runs both detectors over the lookback window before a flood
// peak, stamps each event with its lead time relative to the peak, and
// returns the merged set sorted by detection time. Lead times are not
// clamped; an event at or after the peak carries a zero or negative value.
func Analyze(stage timeseries.Series, peakTime time.Time, params DetectorParams) []Event {
	windowStart := peakTime.Add(-time.Duration(params.LookbackDays) * hoursPerDay * time.Hour)
	win := timeseries.Window(stage, windowStart, peakTime)

	log.Debugf("analyzing precursors from %s to %s",
		windowStart.Format("2006-01-02 15:04"), peakTime.Format("2006-01-02 15:04"))

	events := DetectRapidRise(win, params)
	events = append(events, DetectSustainedRise(win, params)...)

	for i := range events {
		events[i].HoursBeforePeak = peakTime.Sub(events[i].DetectedAt).Hours()
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].DetectedAt.Before(events[j].DetectedAt)
	})

	log.Debugf("found %d total precursor events", len(events))
	return events
}

// Metrics summarizes a set of precursor events
type Metrics struct {
	TotalEvents          int
	RapidRiseEvents      int
	SustainedRiseEvents  int
	MajorEvents          int
	MaxRiseRate          float64
	EarliestWarningHours float64
}

// Summarize computes summary metrics over detected events. An empty event
// set yields the zero value.
func Summarize(events []Event) Metrics {
	var m Metrics
	if len(events) == 0 {
		return m
	}

	m.TotalEvents = len(events)
	m.EarliestWarningHours = events[0].HoursBeforePeak
	for _, e := range events {
		switch e.Kind {
		case RapidRise:
			m.RapidRiseEvents++
			if e.Magnitude > m.MaxRiseRate {
				m.MaxRiseRate = e.Magnitude
			}
		case SustainedRise:
			m.SustainedRiseEvents++
		}
		if e.Severity == SeverityMajor {
			m.MajorEvents++
		}
		if e.HoursBeforePeak > m.EarliestWarningHours {
			m.EarliestWarningHours = e.HoursBeforePeak
		}
	}
	return m
}

func classifyRate(rate float64, params DetectorParams) Severity {
	switch {
	case rate > params.MajorRate:
		return SeverityMajor
	case rate > params.ModerateRate:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}

func classifyRise(rise float64, params DetectorParams) Severity {
	switch {
	case rise > params.MajorRise:
		return SeverityMajor
	case rise > params.ModerateRise:
		return SeverityModerate
	default:
		return SeverityMinor
	}
}
