package track

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Supported input formats.
const (
	FormatGPX = "gpx"
	FormatFIT = "fit"
)

// ErrUnsupportedFormat is returned when neither the file name nor its content
// identifies a known track format.
var ErrUnsupportedFormat = errors.New("unsupported track format")

// Point is one GPS fix. Lat, Lon and Time are always set; sensor readings are
// nil when the source file did not carry them.
type Point struct {
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	Time              time.Time `json:"time"`
	Elevation         *float64  `json:"elevation_m,omitempty"`
	HeartRate         *float64  `json:"hr_bpm,omitempty"`
	Cadence           *float64  `json:"cadence_rpm,omitempty"`
	Power             *float64  `json:"power_w,omitempty"`
	SmoothedElevation *float64  `json:"smoothed_elevation_m,omitempty"`
}

// Track is the cleaned point stream of one input file.
type Track struct {
	Name             string   `json:"name"`
	Title            string   `json:"title,omitempty"`
	Format           string   `json:"format"`
	Points           []Point  `json:"points"`
	DeclaredCalories *float64 `json:"declared_calories,omitempty"`
	DroppedPoints    int      `json:"dropped_points"`
}

// ParseError reports a file that could not be decoded at all. It is fatal for
// that file only.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("parse track: %v", e.Err)
	}
	return fmt.Sprintf("parse track %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CalorieAggregation decides how repeated calorie elements in one file are
// combined into the declared total.
type CalorieAggregation string

const (
	// CaloriesMax treats every calorie element as a cumulative total and keeps
	// the largest. Some exporters repeat the running total once per lap.
	CaloriesMax CalorieAggregation = "max"
	// CaloriesSum treats every calorie element as a partial value.
	CaloriesSum CalorieAggregation = "sum"
)

// ParseCalorieAggregation validates a textual policy; empty selects CaloriesMax.
func ParseCalorieAggregation(s string) (CalorieAggregation, error) {
	switch CalorieAggregation(s) {
	case "", CaloriesMax:
		return CaloriesMax, nil
	case CaloriesSum:
		return CaloriesSum, nil
	default:
		return "", fmt.Errorf("unknown calorie aggregation %q (expected max|sum)", s)
	}
}

func (a CalorieAggregation) combine(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	out := values[0]
	for _, v := range values[1:] {
		if a == CaloriesSum {
			out += v
		} else if v > out {
			out = v
		}
	}
	return &out
}

// sortAndDedup orders points by time and keeps only the first point of any run
// of identical timestamps. It returns the number of removed duplicates.
func sortAndDedup(points []Point) ([]Point, int) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.Time.Equal(out[len(out)-1].Time) {
			continue
		}
		out = append(out, p)
	}
	return out, len(points) - len(out)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatPtr(v float64) *float64 {
	out := v
	return &out
}
