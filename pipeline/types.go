package pipeline

import (
	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/track"
)

// Segment series output formats.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Artifact file names.
const (
	BatchFile        = "batch.json"
	SummaryFile      = "summary.csv"
	LapsFile         = "laps.csv"
	BucketsFile      = "buckets.json"
	NotesFile        = "notes.txt"
	segmentsPrefix   = "segments."
	cleanedGPXSuffix = ".cleaned.gpx"
)

// Options configures Run, the directory-writing batch pipeline.
type Options struct {
	Paths     []string
	OutDir    string
	Format    string // parquet|csv
	GroupBy   string // file|week|month
	Overwrite bool
	WriteGPX  bool
}

// Result returns generated output paths.
type Result struct {
	OutputDir    string   `json:"output_dir"`
	BatchPath    string   `json:"batch_path"`
	SummaryPath  string   `json:"summary_path"`
	LapsPath     string   `json:"laps_path,omitempty"`
	SegmentsPath string   `json:"segments_path"`
	BucketsPath  string   `json:"buckets_path"`
	NotesPath    string   `json:"notes_path"`
	GPXPaths     []string `json:"gpx_paths,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Batch        *Batch   `json:"-"`
}

// BytesOptions configures RunBytes, the in-memory pipeline used by the
// browser and HTTP front ends.
type BytesOptions struct {
	Inputs   []Input
	Format   string
	GroupBy  string
	WriteGPX bool
}

// BytesResult holds every artifact keyed by file name.
type BytesResult struct {
	Batch    *Batch            `json:"batch"`
	Files    map[string][]byte `json:"-"`
	Warnings []string          `json:"warnings,omitempty"`
}

// SessionOptions is the complete configuration of one analysis run.
type SessionOptions struct {
	Analysis           gpxnotes.Options         `json:"analysis"`
	CalorieMethod      gpxnotes.CalorieMethod   `json:"calorie_method"`
	Athlete            gpxnotes.Athlete         `json:"athlete"`
	CalorieAggregation track.CalorieAggregation `json:"calorie_aggregation"`
}

// FileResult is the outcome for one input. Failed files keep their slot with
// zero metrics and Error set.
type FileResult struct {
	Index            int               `json:"index"`
	Name             string            `json:"name"`
	Title            string            `json:"title,omitempty"`
	Format           string            `json:"format,omitempty"`
	DroppedPoints    int               `json:"dropped_points"`
	DeclaredCalories *float64          `json:"declared_calories,omitempty"`
	Analysis         gpxnotes.Analysis `json:"analysis"`
	Calories         *float64          `json:"calories_kcal"`
	Error            string            `json:"error,omitempty"`

	track *track.Track
}

// Failed reports whether the file could not be parsed.
func (f FileResult) Failed() bool {
	return f.Error != ""
}

// Batch is everything one session produced.
type Batch struct {
	SessionID string                    `json:"session_id"`
	Options   SessionOptions            `json:"options"`
	Files     []FileResult              `json:"files"`
	Laps      []gpxnotes.Lap            `json:"laps,omitempty"`
	Total     gpxnotes.AggregateSummary `json:"total"`
}

// SegmentSample is one row of the per-segment time series used for charts.
type SegmentSample struct {
	File         string   `json:"file"`
	FileIndex    int      `json:"file_index"`
	Index        int      `json:"index"`
	StartOffsetS float64  `json:"start_offset_s"`
	DurationS    float64  `json:"duration_s"`
	DistanceM    float64  `json:"distance_m"`
	CumDistanceM float64  `json:"cum_distance_m"`
	SpeedKmh     float64  `json:"speed_kmh"`
	ElevationM   *float64 `json:"elevation_m,omitempty"`
	ElevationUpM float64  `json:"elevation_up_m"`
	HRBPM        *float64 `json:"hr_bpm,omitempty"`
	CadenceRPM   *float64 `json:"cadence_rpm,omitempty"`
	PowerW       *float64 `json:"power_w,omitempty"`
	Moving       bool     `json:"moving"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
}
