package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/floodwatch/floodwatch/internal/regression"
)

// RatingObservation is a paired discharge/stage observation
type RatingObservation struct {
	Time         time.Time
	DischargeCFS float64
	StageFt      float64
}

// FitResult holds the fitted model for one segment count
type FitResult struct {
	Segments int
	Model    *regression.Model
}

func main() {
	// Command line flags
	var (
		dbHost  = flag.String("db-host", "localhost", "Database host")
		dbPort  = flag.Int("db-port", 5432, "Database port")
		dbUser  = flag.String("db-user", "postgres", "Database user")
		dbPass  = flag.String("db-pass", "", "Database password")
		dbName  = flag.String("db-name", "flopro_db", "Database name")
		site    = flag.String("site", "", "Gauge site code (required)")
		days    = flag.Int("days", 365, "Number of days of data to analyze")
		maxSegs = flag.Int("max-segments", 5, "Maximum number of rating curve segments to try")
		csvOut  = flag.String("csv", "", "Optional CSV output file path")
	)
	flag.Parse()

	if *site == "" {
		fmt.Fprintf(os.Stderr, "Error: -site is required\n")
		os.Exit(1)
	}

	// Connect to database
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Stage-Discharge Rating Curve Calibration\n")
	fmt.Printf("========================================\n\n")
	fmt.Printf("Configuration:\n")
	fmt.Printf("  Site: %s\n", *site)
	fmt.Printf("  Analysis Period: %d days\n", *days)
	fmt.Printf("  Max Segments: %d\n\n", *maxSegs)

	observations := fetchObservations(db, *site, *days)

	if len(observations) < 50 {
		fmt.Fprintf(os.Stderr, "Error: Not enough data points (%d). Need at least 50.\n", len(observations))
		os.Exit(1)
	}

	fmt.Printf("Collected %d paired observations\n\n", len(observations))

	discharge := make([]float64, len(observations))
	stage := make([]float64, len(observations))
	for i, obs := range observations {
		discharge[i] = obs.DischargeCFS
		stage[i] = obs.StageFt
	}

	// Fit all segment counts
	results := fitAllSegmentCounts(discharge, stage, *maxSegs)
	if len(results) == 0 {
		fmt.Fprintf(os.Stderr, "Error: No model could be fitted\n")
		os.Exit(1)
	}

	displayComparison(results)

	optimal, rsq, err := regression.OptimalSegmentCount(discharge, stage, *maxSegs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting segment count: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("R2 by segment count: ")
	for i, v := range rsq {
		if i > 0 {
			fmt.Printf(", ")
		}
		fmt.Printf("%d=%.4f", i+1, v)
	}
	fmt.Printf("\nSelected segment count: %d\n\n", optimal)
	for _, r := range results {
		if r.Segments == optimal {
			displayModelDetails(r.Model)
		}
	}

	if *csvOut != "" {
		if err := writeCSV(*csvOut, observations, findModel(results, optimal)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote observations and fitted curve to %s\n", *csvOut)
	}
}

// fetchObservations pulls paired stage and discharge readings for the site
func fetchObservations(db *sql.DB, site string, days int) []RatingObservation {
	rows, err := db.Query(`
		SELECT reading_time,
		       MAX(CASE WHEN parameter_code = '00060' THEN value END) AS discharge_cfs,
		       MAX(CASE WHEN parameter_code = '00065' THEN value END) AS stage_ft
		FROM usgs_raw.gauge_readings
		WHERE site_code = $1
		  AND reading_time > NOW() - ($2 || ' days')::INTERVAL
		GROUP BY reading_time
		HAVING MAX(CASE WHEN parameter_code = '00060' THEN value END) IS NOT NULL
		   AND MAX(CASE WHEN parameter_code = '00065' THEN value END) IS NOT NULL
		ORDER BY reading_time`,
		site, days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying observations: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	var observations []RatingObservation
	for rows.Next() {
		var obs RatingObservation
		if err := rows.Scan(&obs.Time, &obs.DischargeCFS, &obs.StageFt); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			os.Exit(1)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error iterating rows: %v\n", err)
		os.Exit(1)
	}

	return observations
}

// fitAllSegmentCounts fits rating curves with 1..maxSegs segments
func fitAllSegmentCounts(discharge, stage []float64, maxSegs int) []FitResult {
	var results []FitResult
	for n := 1; n <= maxSegs; n++ {
		model, err := regression.Fit(discharge, stage, n, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %d-segment fit failed: %v\n", n, err)
			continue
		}
		results = append(results, FitResult{Segments: n, Model: model})
	}
	return results
}

// displayComparison prints the model comparison table
func displayComparison(results []FitResult) {
	fmt.Printf("Model Comparison:\n")
	fmt.Printf("%-10s %10s %10s\n", "Segments", "R2", "RMSE")
	fmt.Printf("%-10s %10s %10s\n", "--------", "--------", "--------")
	for _, r := range results {
		fmt.Printf("%-10d %10.4f %10.4f\n", r.Segments, r.Model.RSquared, r.Model.RMSE)
	}
	fmt.Println()
}

// displayModelDetails prints the selected model's segments
func displayModelDetails(m *regression.Model) {
	fmt.Printf("Selected Model (%d segments):\n", m.NSegments)
	fmt.Printf("  R2 = %.4f, RMSE = %.4f ft\n", m.RSquared, m.RMSE)
	for i := 0; i < m.NSegments; i++ {
		fmt.Printf("  Segment %d: %.1f to %.1f cfs, stage = %.6f*Q + %.3f\n",
			i+1, m.Breakpoints[i], m.Breakpoints[i+1], m.Slopes[i], m.Intercepts[i])
	}
	fmt.Println()
}

func findModel(results []FitResult, segments int) *regression.Model {
	for _, r := range results {
		if r.Segments == segments {
			return r.Model
		}
	}
	return nil
}

// writeCSV exports observations alongside the fitted curve
func writeCSV(path string, observations []RatingObservation, m *regression.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time", "discharge_cfs", "stage_ft", "fitted_stage_ft"}); err != nil {
		return err
	}

	for _, obs := range observations {
		fitted := ""
		if m != nil {
			fitted = fmt.Sprintf("%.4f", m.Predict([]float64{obs.DischargeCFS})[0])
		}
		record := []string{
			obs.Time.Format(time.RFC3339),
			fmt.Sprintf("%.2f", obs.DischargeCFS),
			fmt.Sprintf("%.4f", obs.StageFt),
			fitted,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return nil
}
