package config

import (
	"errors"
	"fmt"
	"strings"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/pipeline"
	"github.com/lucasjlepore/gpx-analyzer/track"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. GPXA_LAP_DISTANCE_KM.
const EnvPrefix = "GPXA"

// Settings is the flat, file- and env-addressable form of every option.
type Settings struct {
	LogLevel string `mapstructure:"log_level"`
	Listen   string `mapstructure:"listen"`
	// MaxUploadMB bounds multipart uploads accepted by the server.
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
	Format      string `mapstructure:"format"`
	GroupBy     string `mapstructure:"group_by"`

	MovingSpeedThresholdMps float64 `mapstructure:"moving_speed_threshold_mps"`
	MaxSpeedCapKmh          float64 `mapstructure:"max_speed_cap_kmh"`
	MinElevationGainM       float64 `mapstructure:"min_elevation_gain_m"`
	SmoothingEnabled        bool    `mapstructure:"smoothing_enabled"`
	SmoothingWindow         int     `mapstructure:"smoothing_window"`
	CadenceFloorRPM         float64 `mapstructure:"cadence_floor_rpm"`
	AvgOnMovingOnly         bool    `mapstructure:"avg_on_moving_only"`
	RollingSpeedWindowS     float64 `mapstructure:"rolling_speed_window_s"`
	NPWindowS               float64 `mapstructure:"np_window_s"`
	LapDistanceKm           float64 `mapstructure:"lap_distance_km"`
	FTPWatts                float64 `mapstructure:"ftp_watts"`

	CalorieMethod      string  `mapstructure:"calorie_method"`
	CalorieAggregation string  `mapstructure:"calorie_aggregation"`
	WeightKg           float64 `mapstructure:"weight_kg"`
	Age                float64 `mapstructure:"age"`
	Sex                string  `mapstructure:"sex"`
}

// Defaults mirrors gpxnotes.DefaultOptions plus the front-end settings.
func Defaults() Settings {
	o := gpxnotes.DefaultOptions()
	return Settings{
		LogLevel:                "info",
		Listen:                  ":8080",
		MaxUploadMB:             32,
		Format:                  pipeline.FormatParquet,
		GroupBy:                 pipeline.GroupByFile,
		MovingSpeedThresholdMps: o.MovingSpeedThresholdMps,
		MaxSpeedCapKmh:          o.MaxSpeedCapKmh,
		MinElevationGainM:       o.MinElevationGainM,
		SmoothingEnabled:        o.SmoothingEnabled,
		SmoothingWindow:         o.SmoothingWindow,
		CadenceFloorRPM:         o.CadenceFloorRPM,
		AvgOnMovingOnly:         o.AvgOnMovingOnly,
		RollingSpeedWindowS:     o.RollingSpeedWindowS,
		NPWindowS:               o.NPWindowS,
		LapDistanceKm:           o.LapDistanceKm,
		FTPWatts:                o.FTPWatts,
		CalorieMethod:           string(gpxnotes.CalorieAuto),
		CalorieAggregation:      string(track.CaloriesMax),
	}
}

// Load layers defaults, the optional config file at path and GPXA_*
// environment variables, in increasing priority.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v, Defaults())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("format", d.Format)
	v.SetDefault("group_by", d.GroupBy)
	v.SetDefault("moving_speed_threshold_mps", d.MovingSpeedThresholdMps)
	v.SetDefault("max_speed_cap_kmh", d.MaxSpeedCapKmh)
	v.SetDefault("min_elevation_gain_m", d.MinElevationGainM)
	v.SetDefault("smoothing_enabled", d.SmoothingEnabled)
	v.SetDefault("smoothing_window", d.SmoothingWindow)
	v.SetDefault("cadence_floor_rpm", d.CadenceFloorRPM)
	v.SetDefault("avg_on_moving_only", d.AvgOnMovingOnly)
	v.SetDefault("rolling_speed_window_s", d.RollingSpeedWindowS)
	v.SetDefault("np_window_s", d.NPWindowS)
	v.SetDefault("lap_distance_km", d.LapDistanceKm)
	v.SetDefault("ftp_watts", d.FTPWatts)
	v.SetDefault("calorie_method", d.CalorieMethod)
	v.SetDefault("calorie_aggregation", d.CalorieAggregation)
	v.SetDefault("weight_kg", d.WeightKg)
	v.SetDefault("age", d.Age)
	v.SetDefault("sex", d.Sex)
}

// Validate reports every invalid setting at once.
func (s Settings) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if s.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("max upload must be > 0 MB, got %d", s.MaxUploadMB))
	}
	if f := strings.ToLower(s.Format); f != pipeline.FormatParquet && f != pipeline.FormatCSV {
		errs = append(errs, fmt.Errorf("unsupported format %q (expected parquet|csv)", s.Format))
	}
	if _, err := pipeline.ParseGroupBy(s.GroupBy); err != nil {
		errs = append(errs, err)
	}
	if err := s.SessionOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SessionOptions converts the settings into pipeline options.
func (s Settings) SessionOptions() pipeline.SessionOptions {
	return pipeline.SessionOptions{
		Analysis: gpxnotes.Options{
			MovingSpeedThresholdMps: s.MovingSpeedThresholdMps,
			MaxSpeedCapKmh:          s.MaxSpeedCapKmh,
			MinElevationGainM:       s.MinElevationGainM,
			SmoothingEnabled:        s.SmoothingEnabled,
			SmoothingWindow:         s.SmoothingWindow,
			CadenceFloorRPM:         s.CadenceFloorRPM,
			AvgOnMovingOnly:         s.AvgOnMovingOnly,
			RollingSpeedWindowS:     s.RollingSpeedWindowS,
			NPWindowS:               s.NPWindowS,
			LapDistanceKm:           s.LapDistanceKm,
			FTPWatts:                s.FTPWatts,
		},
		CalorieMethod: gpxnotes.CalorieMethod(strings.ToLower(s.CalorieMethod)),
		Athlete: gpxnotes.Athlete{
			WeightKg: s.WeightKg,
			Age:      s.Age,
			Sex:      gpxnotes.Sex(strings.ToLower(s.Sex)),
		},
		CalorieAggregation: track.CalorieAggregation(strings.ToLower(s.CalorieAggregation)),
	}
}

// Logger builds a logrus logger at the configured level.
func (s Settings) Logger(formatter logrus.Formatter) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(formatter)
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
