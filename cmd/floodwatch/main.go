package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/floodwatch/floodwatch/internal/correlation"
	"github.com/floodwatch/floodwatch/internal/database"
	"github.com/floodwatch/floodwatch/internal/log"
	"github.com/floodwatch/floodwatch/internal/precursor"
	"github.com/floodwatch/floodwatch/internal/regression"
	"github.com/floodwatch/floodwatch/internal/timeseries"
	"github.com/floodwatch/floodwatch/pkg/config"
)

const version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source (YAML file or SQLite database)")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' or 'sqlite'")
	siteCode := flag.String("site", "", "Analyze a specific site only")
	limit := flag.Int("limit", 10, "Maximum number of flood events to analyze")
	networkDays := flag.Int("network-days", 90, "Days of data for network correlation")
	doRegression := flag.Bool("regression", false, "Include stage-discharge regression (requires -site)")
	doNetwork := flag.Bool("network", false, "Include station network correlation")
	save := flag.Bool("save", false, "Persist analysis results to the database")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("floodwatch %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	cfg, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	// .env and environment override for the archive connection
	_ = godotenv.Load()
	connStr := cfg.Database.ConnectionString
	if url := os.Getenv("DATABASE_URL"); url != "" {
		connStr = url
	}
	if connStr == "" {
		log.Error("No database connection configured. Set database.connection_string or DATABASE_URL.")
		os.Exit(1)
	}

	db := database.NewClient(connStr, log.GetSugaredLogger())
	if err := db.Connect(); err != nil {
		log.Errorf("Failed to connect to gauge archive: %v", err)
		os.Exit(1)
	}

	params := detectorParams(cfg)

	var runID uuid.UUID
	if *save {
		runID, err = db.CreateAnalysisRun(*siteCode)
		if err != nil {
			log.Errorf("Failed to create analysis run: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Analysis run %s\n\n", runID)
	}

	// Load flood events
	events, err := db.GetFloodEvents(*siteCode, *limit)
	if err != nil {
		log.Errorf("Failed to load flood events: %v", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("No flood events found in database")
		return
	}
	fmt.Printf("Found %d flood events to analyze\n\n", len(events))

	analyzed := 0
	totalPrecursors := 0
	for _, ev := range events {
		n, err := analyzeEvent(db, ev, params, *save, runID)
		if err != nil {
			log.Errorf("Event %d analysis failed: %v", ev.ID, err)
			continue
		}
		analyzed++
		totalPrecursors += n
	}

	if *doNetwork {
		analyzeNetwork(db, cfg, *networkDays, *save, runID)
	}

	if *doRegression && *siteCode != "" {
		analyzeRating(db, cfg, *siteCode)
	}

	fmt.Printf("\n============================================================\n")
	fmt.Printf("Analysis Complete\n")
	fmt.Printf("============================================================\n")
	fmt.Printf("Events analyzed: %d\n", analyzed)
	if analyzed > 0 {
		fmt.Printf("Average precursors per event: %.1f\n", float64(totalPrecursors)/float64(analyzed))
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}

// detectorParams merges configuration overrides onto the engine defaults
func detectorParams(cfg *config.ConfigData) precursor.DetectorParams {
	params := precursor.DefaultDetectorParams()
	a := cfg.Analysis
	if a.LookbackDays > 0 {
		params.LookbackDays = a.LookbackDays
	}
	if a.RateWindowHours > 0 {
		params.RateWindowHours = a.RateWindowHours
	}
	if a.RapidRiseThreshold > 0 {
		params.RapidRiseThreshold = a.RapidRiseThreshold
	}
	if a.MinDurationHours > 0 {
		params.MinDurationHours = a.MinDurationHours
	}
	if a.SustainedRiseThreshold > 0 {
		params.SustainedRiseThreshold = a.SustainedRiseThreshold
	}
	if a.SustainedWindowDays > 0 {
		params.SustainedWindowDays = a.SustainedWindowDays
	}
	return params
}

func maxLagHours(cfg *config.ConfigData) int {
	if cfg.Analysis.MaxLagHours > 0 {
		return cfg.Analysis.MaxLagHours
	}
	return 48
}

// analyzeEvent runs precursor detection for a single flood event and
// returns the number of precursors found
func analyzeEvent(db *database.Client, ev database.EventWithThreshold, params precursor.DetectorParams, save bool, runID uuid.UUID) (int, error) {
	fmt.Printf("============================================================\n")
	fmt.Printf("Event %d: %s at %s\n", ev.ID, ev.SiteCode, ev.CrestTime.Format("2006-01-02 15:04"))
	fmt.Printf("Peak: %.2f ft (%s), flood stage %.2f ft\n", ev.PeakStageFt, ev.Severity, ev.FloodStageFt)
	fmt.Printf("============================================================\n")

	windowStart := ev.CrestTime.Add(-time.Duration(params.LookbackDays) * 24 * time.Hour)
	windowEnd := ev.CrestTime.Add(24 * time.Hour)

	stage, err := db.GetStageSeries(ev.SiteCode, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}
	if len(stage) == 0 {
		fmt.Printf("  No stage data available for analysis\n\n")
		return 0, nil
	}

	precursors := precursor.Analyze(stage, ev.CrestTime, params)
	if len(precursors) == 0 {
		fmt.Printf("  No significant precursors detected\n\n")
		return 0, nil
	}

	fmt.Printf("\nFound %d precursor events:\n", len(precursors))
	for _, p := range precursors {
		fmt.Printf("  %-15s %6.1fh before peak - %s\n", p.Kind, p.HoursBeforePeak, p.Description)
	}

	metrics := precursor.Summarize(precursors)
	fmt.Printf("\nPrecursor metrics:\n")
	fmt.Printf("  Earliest warning: %.1f hours\n", metrics.EarliestWarningHours)
	fmt.Printf("  Max rise rate: %.2f ft/day\n", metrics.MaxRiseRate)
	fmt.Printf("  Major events: %d\n\n", metrics.MajorEvents)

	if save {
		if err := db.SavePrecursorEvents(runID, ev.ID, ev.SiteCode, precursors); err != nil {
			log.Errorf("Failed to save precursors for event %d: %v", ev.ID, err)
		}
	}

	return len(precursors), nil
}

// analyzeNetwork correlates adjacent station pairs in configured order
func analyzeNetwork(db *database.Client, cfg *config.ConfigData, days int, save bool, runID uuid.UUID) {
	order := cfg.StationOrder()
	if len(order) < 2 {
		fmt.Println("Network correlation requires at least two configured stations")
		return
	}

	fmt.Printf("============================================================\n")
	fmt.Printf("Station Network Correlation (%d days)\n", days)
	fmt.Printf("============================================================\n")

	end := time.Now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	series := make(map[string]timeseries.Series, len(order))
	for _, site := range order {
		s, err := db.GetStageSeries(site, start, end)
		if err != nil {
			log.Errorf("Failed to load stage data for %s: %v", site, err)
			continue
		}
		series[site] = s
	}

	pairs := correlation.AnalyzeNetwork(series, order, maxLagHours(cfg))
	if len(pairs) == 0 {
		fmt.Println("No station pairs could be correlated")
		return
	}

	fmt.Printf("%-10s %-10s %8s %8s %6s %8s %8s %6s\n",
		"Upstream", "Downstream", "r", "p", "lag", "R2", "slope", "n")
	for _, p := range pairs {
		fmt.Printf("%-10s %-10s %8.3f %8.4f %5dh %8.3f %8.3f %6d\n",
			p.Upstream, p.Downstream, p.PearsonR, p.PValue, p.LagHours,
			p.RSquared, p.Slope, p.SampleSize)
	}
	fmt.Println()

	if save {
		if err := db.SaveStationCorrelations(runID, pairs); err != nil {
			log.Errorf("Failed to save station correlations: %v", err)
		}
	}
}

// analyzeRating fits the stage-discharge rating curve for one site
func analyzeRating(db *database.Client, cfg *config.ConfigData, siteCode string) {
	fmt.Printf("============================================================\n")
	fmt.Printf("Stage-Discharge Analysis: %s\n", siteCode)
	fmt.Printf("============================================================\n")

	since := time.Now().UTC().Add(-365 * 24 * time.Hour)
	discharge, stage, err := db.GetStageDischargePairs(siteCode, since)
	if err != nil {
		log.Errorf("Failed to load stage-discharge pairs: %v", err)
		return
	}
	if len(discharge) < 50 {
		fmt.Printf("Insufficient data for regression (only %d points)\n\n", len(discharge))
		return
	}
	fmt.Printf("Loaded %d paired observations\n", len(discharge))

	segments := cfg.Analysis.RatingSegments
	if segments == 0 {
		segments = 3
	}

	model, err := regression.Fit(discharge, stage, segments, nil)
	if err != nil {
		log.Errorf("Regression failed: %v", err)
		return
	}

	fmt.Printf("\nStage-discharge regression:\n")
	fmt.Printf("  R2 = %.4f\n", model.RSquared)
	fmt.Printf("  RMSE = %.2f ft\n", model.RMSE)
	fmt.Printf("  Breakpoints: %v\n", model.Breakpoints)
	fmt.Printf("  Slopes: %v\n", model.Slopes)

	if maxSegments := cfg.Analysis.MaxRatingSegments; maxSegments > 0 {
		optimal, rsq, err := regression.OptimalSegmentCount(discharge, stage, maxSegments)
		if err != nil {
			log.Errorf("Segment count selection failed: %v", err)
			return
		}
		fmt.Printf("\nOptimal segment count: %d (R2 by count: %v)\n", optimal, rsq)
	}
	fmt.Println()
}
