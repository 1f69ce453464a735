package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/track"
	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	opts := s.SessionOptions()
	if opts.Analysis != gpxnotes.DefaultOptions() {
		t.Fatalf("default analysis options differ: %+v", opts.Analysis)
	}
	if opts.CalorieMethod != gpxnotes.CalorieAuto || opts.CalorieAggregation != track.CaloriesMax {
		t.Fatalf("unexpected calorie defaults: %+v", opts)
	}
	if s.Listen != ":8080" || s.Format != "parquet" {
		t.Fatalf("unexpected front-end defaults: %+v", s)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpxa.yaml")
	body := "ftp_watts: 250\ncalorie_method: hr\nweight_kg: 72.5\nage: 41\nsex: female\nlap_distance_km: 5\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GPXA_LAP_DISTANCE_KM", "2")
	t.Setenv("GPXA_CALORIE_AGGREGATION", "sum")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	opts := s.SessionOptions()
	if opts.Analysis.FTPWatts != 250 {
		t.Fatalf("expected ftp from file, got %v", opts.Analysis.FTPWatts)
	}
	if opts.Analysis.LapDistanceKm != 2 {
		t.Fatalf("env should override the file, got lap distance %v", opts.Analysis.LapDistanceKm)
	}
	if opts.CalorieAggregation != track.CaloriesSum {
		t.Fatalf("expected sum aggregation from env, got %q", opts.CalorieAggregation)
	}
	if opts.Athlete != (gpxnotes.Athlete{WeightKg: 72.5, Age: 41, Sex: gpxnotes.SexFemale}) {
		t.Fatalf("unexpected athlete %+v", opts.Athlete)
	}
	if got := s.Logger(&logrus.TextFormatter{}).GetLevel(); got != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", got)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("GPXA_LAP_DISTANCE_KM", "0")
	t.Setenv("GPXA_SEX", "other")
	t.Setenv("GPXA_GROUP_BY", "year")

	_, err := Load("")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"lap distance", "unknown sex", "unknown grouping"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for a missing config file")
	}
}
