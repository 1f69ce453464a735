package gpxnotes

import (
	"errors"
	"fmt"
)

// Options holds every tunable threshold of the analysis pipeline.
type Options struct {
	MovingSpeedThresholdMps float64 `json:"moving_speed_threshold_mps"`
	MaxSpeedCapKmh          float64 `json:"max_speed_cap_kmh"`
	MinElevationGainM       float64 `json:"min_elevation_gain_m"`
	SmoothingEnabled        bool    `json:"smoothing_enabled"`
	SmoothingWindow         int     `json:"smoothing_window"`
	CadenceFloorRPM         float64 `json:"cadence_floor_rpm"`
	AvgOnMovingOnly         bool    `json:"avg_on_moving_only"`
	RollingSpeedWindowS     float64 `json:"rolling_speed_window_s"`
	NPWindowS               float64 `json:"np_window_s"`
	LapDistanceKm           float64 `json:"lap_distance_km"`
	FTPWatts                float64 `json:"ftp_watts"`
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MovingSpeedThresholdMps: 1.0,
		MaxSpeedCapKmh:          120,
		MinElevationGainM:       1,
		SmoothingEnabled:        true,
		SmoothingWindow:         5,
		CadenceFloorRPM:         10,
		AvgOnMovingOnly:         true,
		RollingSpeedWindowS:     5,
		NPWindowS:               30,
		LapDistanceKm:           1,
	}
}

// Validate rejects options that would make the analysis meaningless.
func (o Options) Validate() error {
	var errs []error
	if !isFinite(o.MovingSpeedThresholdMps) || o.MovingSpeedThresholdMps < 0 {
		errs = append(errs, fmt.Errorf("moving speed threshold must be >= 0, got %v", o.MovingSpeedThresholdMps))
	}
	if !isFinite(o.MaxSpeedCapKmh) || o.MaxSpeedCapKmh <= 0 {
		errs = append(errs, fmt.Errorf("max speed cap must be > 0, got %v", o.MaxSpeedCapKmh))
	}
	if !isFinite(o.MinElevationGainM) || o.MinElevationGainM < 0 {
		errs = append(errs, fmt.Errorf("min elevation gain must be >= 0, got %v", o.MinElevationGainM))
	}
	if o.SmoothingWindow < 1 {
		errs = append(errs, fmt.Errorf("smoothing window must be >= 1, got %d", o.SmoothingWindow))
	}
	if !isFinite(o.LapDistanceKm) || o.LapDistanceKm <= 0 {
		errs = append(errs, fmt.Errorf("lap distance must be > 0, got %v", o.LapDistanceKm))
	}
	if !isFinite(o.FTPWatts) || o.FTPWatts < 0 {
		errs = append(errs, fmt.Errorf("ftp must be >= 0, got %v", o.FTPWatts))
	}
	return errors.Join(errs...)
}
