// Package database provides the client for the gauge readings archive
// curated by the ingest daemon, plus persistence of analysis output.
package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/floodwatch/floodwatch/internal/correlation"
	"github.com/floodwatch/floodwatch/internal/log"
	"github.com/floodwatch/floodwatch/internal/precursor"
	"github.com/floodwatch/floodwatch/internal/timeseries"
)

// Client holds the connection to the gauge archive database
type Client struct {
	connectionString string
	DB               *gorm.DB // Exported so it can be accessed from other packages
	logger           *zap.SugaredLogger
}

// NewClient creates a new database client
func NewClient(connectionString string, logger *zap.SugaredLogger) *Client {
	return &Client{
		connectionString: connectionString,
		logger:           logger,
	}
}

// Connect connects to the gauge archive database
func (c *Client) Connect() error {
	var err error

	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	log.Info("connecting to gauge archive...")
	c.DB, err = gorm.Open(postgres.Open(c.connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a gauge archive connection:", err)
		return err
	}
	log.Info("gauge archive connection successful")

	return nil
}

// GetFloodEvents retrieves recent flood events joined to their site's
// flood thresholds, newest first. An empty siteCode matches all sites.
func (c *Client) GetFloodEvents(siteCode string, limit int) ([]EventWithThreshold, error) {
	query := c.DB.Table("nws.flood_events AS e").
		Select("e.id, e.site_code, e.crest_time, e.peak_stage_ft, e.severity, t.flood_stage_ft").
		Joins("JOIN nws.flood_thresholds t ON e.site_code = t.site_code").
		Where("e.crest_time IS NOT NULL")

	if siteCode != "" {
		query = query.Where("e.site_code = ?", siteCode)
	}

	var events []EventWithThreshold
	if err := query.Order("e.crest_time DESC").Limit(limit).Scan(&events).Error; err != nil {
		return nil, fmt.Errorf("error querying flood events: %w", err)
	}

	c.logger.Debugf("loaded %d flood events", len(events))
	return events, nil
}

// GetStageSeries retrieves the stage time series for a site within a window
func (c *Client) GetStageSeries(siteCode string, start, end time.Time) (timeseries.Series, error) {
	var readings []GaugeReading
	err := c.DB.
		Where("site_code = ? AND parameter_code = ? AND reading_time BETWEEN ? AND ?",
			siteCode, ParamStage, start, end).
		Order("reading_time").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("error querying stage readings for %s: %w", siteCode, err)
	}

	series := make(timeseries.Series, len(readings))
	for i, r := range readings {
		series[i] = timeseries.Point{Time: r.ReadingTime, Value: r.Value}
	}

	c.logger.Debugf("loaded %d stage readings for %s", len(series), siteCode)
	return series, nil
}

// GetStageDischargePairs retrieves paired stage and discharge observations
// for a site since the given time, for rating-curve regression. Returns
// discharge (cfs) as x and stage (ft) as y.
func (c *Client) GetStageDischargePairs(siteCode string, since time.Time) (discharge, stage []float64, err error) {
	rows, err := c.DB.Raw(`
		SELECT reading_time,
		       MAX(CASE WHEN parameter_code = ? THEN value END) AS stage_ft,
		       MAX(CASE WHEN parameter_code = ? THEN value END) AS discharge_cfs
		FROM usgs_raw.gauge_readings
		WHERE site_code = ? AND reading_time > ?
		GROUP BY reading_time
		HAVING MAX(CASE WHEN parameter_code = ? THEN value END) IS NOT NULL
		   AND MAX(CASE WHEN parameter_code = ? THEN value END) IS NOT NULL
		ORDER BY reading_time`,
		ParamStage, ParamDischarge, siteCode, since, ParamStage, ParamDischarge).Rows()
	if err != nil {
		return nil, nil, fmt.Errorf("error querying stage-discharge pairs for %s: %w", siteCode, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t time.Time
		var s, d float64
		if err := rows.Scan(&t, &s, &d); err != nil {
			return nil, nil, fmt.Errorf("error scanning stage-discharge row: %w", err)
		}
		stage = append(stage, s)
		discharge = append(discharge, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating stage-discharge rows: %w", err)
	}

	c.logger.Debugf("loaded %d paired observations for %s", len(stage), siteCode)
	return discharge, stage, nil
}

// CreateAnalysisRun records a new analysis run and returns its ID
func (c *Client) CreateAnalysisRun(siteCode string) (uuid.UUID, error) {
	run := AnalysisRun{
		ID:        uuid.New(),
		SiteCode:  siteCode,
		StartedAt: time.Now().UTC(),
	}
	if err := c.DB.Create(&run).Error; err != nil {
		return uuid.Nil, fmt.Errorf("error creating analysis run: %w", err)
	}
	return run.ID, nil
}

// SavePrecursorEvents persists detected precursor events for a flood event
func (c *Client) SavePrecursorEvents(runID uuid.UUID, eventID int64, siteCode string, events []precursor.Event) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]PrecursorRecord, len(events))
	for i, e := range events {
		records[i] = PrecursorRecord{
			RunID:           runID,
			EventID:         eventID,
			SiteCode:        siteCode,
			Kind:            string(e.Kind),
			DetectedAt:      e.DetectedAt,
			Magnitude:       e.Magnitude,
			Severity:        string(e.Severity),
			HoursBeforePeak: e.HoursBeforePeak,
			Description:     e.Description,
		}
	}

	if err := c.DB.Create(&records).Error; err != nil {
		return fmt.Errorf("error saving precursor events: %w", err)
	}

	c.logger.Debugf("saved %d precursor events for event %d", len(records), eventID)
	return nil
}

// SaveStationCorrelations persists pairwise network correlation results
func (c *Client) SaveStationCorrelations(runID uuid.UUID, pairs []correlation.PairResult) error {
	if len(pairs) == 0 {
		return nil
	}

	records := make([]StationCorrelationRecord, len(pairs))
	for i, p := range pairs {
		records[i] = StationCorrelationRecord{
			RunID:          runID,
			UpstreamSite:   p.Upstream,
			DownstreamSite: p.Downstream,
			PearsonR:       p.PearsonR,
			PValue:         p.PValue,
			LagHours:       p.LagHours,
			RSquared:       p.RSquared,
			Slope:          p.Slope,
			Intercept:      p.Intercept,
			SampleSize:     p.SampleSize,
		}
	}

	if err := c.DB.Create(&records).Error; err != nil {
		return fmt.Errorf("error saving station correlations: %w", err)
	}

	c.logger.Debugf("saved %d station correlations", len(records))
	return nil
}
