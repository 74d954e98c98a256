package config

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	var connStr string
	err := s.db.QueryRow(`SELECT connection_string FROM database_config LIMIT 1`).Scan(&connStr)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query database config: %w", err)
	}
	config.Database = DatabaseData{ConnectionString: connStr}

	stations, err := s.GetStations()
	if err != nil {
		return nil, fmt.Errorf("failed to load stations: %w", err)
	}
	config.Stations = stations

	analysis, err := s.GetAnalysis()
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis config: %w", err)
	}
	config.Analysis = *analysis

	return config, nil
}

// GetStations returns station configurations in network order
func (s *SQLiteProvider) GetStations() ([]StationData, error) {
	rows, err := s.db.Query(`SELECT site_code, name FROM stations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	var stations []StationData
	for rows.Next() {
		var st StationData
		var name sql.NullString
		if err := rows.Scan(&st.SiteCode, &name); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		st.Name = name.String
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// GetAnalysis returns analysis parameter overrides
func (s *SQLiteProvider) GetAnalysis() (*AnalysisData, error) {
	a := &AnalysisData{}
	err := s.db.QueryRow(`
		SELECT lookback_days, rate_window_hours, rapid_rise_threshold,
		       min_duration_hours, sustained_rise_threshold,
		       sustained_window_days, max_lag_hours, rating_segments,
		       max_rating_segments
		FROM analysis_config LIMIT 1`).Scan(
		&a.LookbackDays, &a.RateWindowHours, &a.RapidRiseThreshold,
		&a.MinDurationHours, &a.SustainedRiseThreshold,
		&a.SustainedWindowDays, &a.MaxLagHours, &a.RatingSegments,
		&a.MaxRatingSegments)
	if err == sql.ErrNoRows {
		return a, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis config: %w", err)
	}
	return a, nil
}

// Close closes the underlying database handle
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
