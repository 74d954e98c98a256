// Package config provides configuration loading for the analysis tools
// from YAML files or SQLite databases.
package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStations() ([]StationData, error)
	GetAnalysis() (*AnalysisData, error)

	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Database DatabaseData  `yaml:"database"`
	Stations []StationData `yaml:"stations"`
	Analysis AnalysisData  `yaml:"analysis"`
}

// DatabaseData holds the gauge archive connection settings. The
// DATABASE_URL environment variable overrides ConnectionString when set.
type DatabaseData struct {
	ConnectionString string `yaml:"connection_string"`
}

// StationData describes one gauge site. The list order in the
// configuration is the upstream-to-downstream network order used for
// pairwise correlation.
type StationData struct {
	SiteCode string `yaml:"site_code"`
	Name     string `yaml:"name,omitempty"`
}

// AnalysisData holds analysis parameter overrides. Zero values fall back
// to the engine defaults.
type AnalysisData struct {
	LookbackDays           int     `yaml:"lookback_days,omitempty"`
	RateWindowHours        int     `yaml:"rate_window_hours,omitempty"`
	RapidRiseThreshold     float64 `yaml:"rapid_rise_threshold,omitempty"`
	MinDurationHours       int     `yaml:"min_duration_hours,omitempty"`
	SustainedRiseThreshold float64 `yaml:"sustained_rise_threshold,omitempty"`
	SustainedWindowDays    int     `yaml:"sustained_window_days,omitempty"`
	MaxLagHours            int     `yaml:"max_lag_hours,omitempty"`
	RatingSegments         int     `yaml:"rating_segments,omitempty"`
	MaxRatingSegments      int     `yaml:"max_rating_segments,omitempty"`
}

// StationOrder returns the configured site codes in
// upstream-to-downstream order
func (c *ConfigData) StationOrder() []string {
	order := make([]string, len(c.Stations))
	for i, s := range c.Stations {
		order[i] = s.SiteCode
	}
	return order
}
