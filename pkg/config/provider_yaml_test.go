package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestYAMLProviderLoadConfig(t *testing.T) {
	content := `
database:
  connection_string: "host=localhost user=flopro dbname=flopro_db"
stations:
  - site_code: "01646500"
    name: "Potomac at Little Falls"
  - site_code: "01638500"
    name: "Potomac at Point of Rocks"
analysis:
  lookback_days: 21
  rate_window_hours: 4
  max_lag_hours: 72
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	provider := NewYAMLProvider(path)
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Database.ConnectionString == "" {
		t.Error("expected a database connection string")
	}
	if len(cfg.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(cfg.Stations))
	}
	if cfg.Stations[0].SiteCode != "01646500" {
		t.Errorf("unexpected first station: %s", cfg.Stations[0].SiteCode)
	}
	if cfg.Analysis.LookbackDays != 21 {
		t.Errorf("expected lookback_days 21, got %d", cfg.Analysis.LookbackDays)
	}
	if cfg.Analysis.MaxLagHours != 72 {
		t.Errorf("expected max_lag_hours 72, got %d", cfg.Analysis.MaxLagHours)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	provider := NewYAMLProvider("/nonexistent/config.yaml")
	if _, err := provider.LoadConfig(); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestStationOrder(t *testing.T) {
	cfg := &ConfigData{
		Stations: []StationData{
			{SiteCode: "A"}, {SiteCode: "B"}, {SiteCode: "C"},
		},
	}
	order := cfg.StationOrder()
	if len(order) != 3 || order[0] != "A" || order[2] != "C" {
		t.Errorf("unexpected station order: %v", order)
	}
}
