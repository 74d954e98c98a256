package database

import (
	"time"

	"github.com/google/uuid"
)

// USGS parameter codes for the readings archive
const (
	ParamStage     = "00065" // gauge height, feet
	ParamDischarge = "00060" // discharge, cubic feet per second
)

// GaugeReading is a raw gauge observation in the readings archive
type GaugeReading struct {
	SiteCode      string    `gorm:"column:site_code;primaryKey"`
	ParameterCode string    `gorm:"column:parameter_code;primaryKey"`
	ReadingTime   time.Time `gorm:"column:reading_time;primaryKey"`
	Value         float64   `gorm:"column:value"`
}

// TableName specifies the table name for GaugeReading
func (GaugeReading) TableName() string {
	return "usgs_raw.gauge_readings"
}

// FloodEvent is a historical flood crest at a gauge site
type FloodEvent struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	SiteCode    string    `gorm:"column:site_code"`
	CrestTime   time.Time `gorm:"column:crest_time"`
	PeakStageFt float64   `gorm:"column:peak_stage_ft"`
	Severity    string    `gorm:"column:severity"`
}

// TableName specifies the table name for FloodEvent
func (FloodEvent) TableName() string {
	return "nws.flood_events"
}

// FloodThreshold holds the published flood stage for a site
type FloodThreshold struct {
	SiteCode     string  `gorm:"column:site_code;primaryKey"`
	FloodStageFt float64 `gorm:"column:flood_stage_ft"`
}

// TableName specifies the table name for FloodThreshold
func (FloodThreshold) TableName() string {
	return "nws.flood_thresholds"
}

// EventWithThreshold is a flood event joined to its site's flood stage
type EventWithThreshold struct {
	FloodEvent
	FloodStageFt float64 `gorm:"column:flood_stage_ft"`
}

// AnalysisRun groups the analysis output persisted by a single invocation
type AnalysisRun struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	SiteCode  string    `gorm:"column:site_code"`
	StartedAt time.Time `gorm:"column:started_at"`
}

// TableName specifies the table name for AnalysisRun
func (AnalysisRun) TableName() string {
	return "flood_analysis.analysis_runs"
}

// PrecursorRecord is a persisted precursor event tied to a flood event
type PrecursorRecord struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID           uuid.UUID `gorm:"column:run_id;type:uuid"`
	EventID         int64     `gorm:"column:event_id"`
	SiteCode        string    `gorm:"column:site_code"`
	Kind            string    `gorm:"column:kind"`
	DetectedAt      time.Time `gorm:"column:detected_at"`
	Magnitude       float64   `gorm:"column:magnitude"`
	Severity        string    `gorm:"column:severity"`
	HoursBeforePeak float64   `gorm:"column:hours_before_peak"`
	Description     string    `gorm:"column:description"`
}

// TableName specifies the table name for PrecursorRecord
func (PrecursorRecord) TableName() string {
	return "flood_analysis.precursor_events"
}

// StationCorrelationRecord is a persisted pairwise correlation result
type StationCorrelationRecord struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID          uuid.UUID `gorm:"column:run_id;type:uuid"`
	UpstreamSite   string    `gorm:"column:upstream_site"`
	DownstreamSite string    `gorm:"column:downstream_site"`
	PearsonR       float64   `gorm:"column:pearson_r"`
	PValue         float64   `gorm:"column:p_value"`
	LagHours       int       `gorm:"column:lag_hours"`
	RSquared       float64   `gorm:"column:r_squared"`
	Slope          float64   `gorm:"column:slope"`
	Intercept      float64   `gorm:"column:intercept"`
	SampleSize     int       `gorm:"column:sample_size"`
}

// TableName specifies the table name for StationCorrelationRecord
func (StationCorrelationRecord) TableName() string {
	return "flood_analysis.station_correlations"
}
