package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/track"
)

// Run analyses every path with the session and writes all artifacts to
// opts.OutDir.
func Run(ctx context.Context, s *Session, opts Options) (*Result, error) {
	if len(opts.Paths) == 0 {
		return nil, fmt.Errorf("at least one track path is required")
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format, err := resolveFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if _, err := ParseGroupBy(opts.GroupBy); err != nil {
		return nil, err
	}
	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}

	inputs := make([]Input, 0, len(opts.Paths))
	for _, p := range opts.Paths {
		inputs = append(inputs, FileInput(p))
	}
	batch, err := s.Analyze(ctx, inputs)
	if err != nil {
		return nil, err
	}

	arts, warnings, err := collectArtifacts(batch, opts.GroupBy, opts.WriteGPX)
	if err != nil {
		return nil, err
	}
	res := &Result{
		OutputDir:    opts.OutDir,
		BatchPath:    filepath.Join(opts.OutDir, BatchFile),
		SummaryPath:  filepath.Join(opts.OutDir, SummaryFile),
		SegmentsPath: filepath.Join(opts.OutDir, segmentsPrefix+format),
		BucketsPath:  filepath.Join(opts.OutDir, BucketsFile),
		NotesPath:    filepath.Join(opts.OutDir, NotesFile),
		Warnings:     warnings,
		Batch:        batch,
	}

	if err := writeJSON(res.BatchPath, batch); err != nil {
		return nil, fmt.Errorf("write %s: %w", BatchFile, err)
	}
	for _, a := range arts {
		path := filepath.Join(opts.OutDir, a.name)
		if err := os.WriteFile(path, a.data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", a.name, err)
		}
		switch {
		case a.name == LapsFile:
			res.LapsPath = path
		case strings.HasSuffix(a.name, cleanedGPXSuffix):
			res.GPXPaths = append(res.GPXPaths, path)
		}
	}

	samples := SegmentSamples(batch)
	switch format {
	case FormatParquet:
		if err := writeSegmentsParquet(res.SegmentsPath, samples); err != nil {
			return nil, fmt.Errorf("write segments parquet: %w", err)
		}
	case FormatCSV:
		if err := os.WriteFile(res.SegmentsPath, MarshalCSV(SeriesRecords(samples)), 0o644); err != nil {
			return nil, fmt.Errorf("write segments csv: %w", err)
		}
	}
	return res, nil
}

// RunBytes is Run without a filesystem: every artifact is returned in memory
// keyed by its file name.
func RunBytes(ctx context.Context, s *Session, opts BytesOptions) (*BytesResult, error) {
	format, err := resolveFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	if _, err := ParseGroupBy(opts.GroupBy); err != nil {
		return nil, err
	}
	batch, err := s.Analyze(ctx, opts.Inputs)
	if err != nil {
		return nil, err
	}

	arts, warnings, err := collectArtifacts(batch, opts.GroupBy, opts.WriteGPX)
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte, len(arts)+2)
	for _, a := range arts {
		files[a.name] = a.data
	}

	data, err := marshalJSON(batch)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", BatchFile, err)
	}
	files[BatchFile] = data

	samples := SegmentSamples(batch)
	switch format {
	case FormatParquet:
		data, err = marshalSegmentsParquet(samples)
		if err != nil {
			return nil, fmt.Errorf("encode segments parquet: %w", err)
		}
	case FormatCSV:
		data = MarshalCSV(SeriesRecords(samples))
	}
	files[segmentsPrefix+format] = data

	return &BytesResult{Batch: batch, Files: files, Warnings: warnings}, nil
}

type artifact struct {
	name string
	data []byte
}

// collectArtifacts renders everything except batch.json and the segment
// series, whose encoding depends on the destination.
func collectArtifacts(b *Batch, groupBy string, withGPX bool) ([]artifact, []string, error) {
	var out []artifact
	var warnings []string

	for _, f := range b.Files {
		switch {
		case f.Failed():
			warnings = append(warnings, fmt.Sprintf("%s: %s", f.Name, f.Error))
		case f.DroppedPoints > 0:
			warnings = append(warnings, fmt.Sprintf("%s: dropped %d invalid or duplicate points", f.Name, f.DroppedPoints))
		}
	}

	out = append(out, artifact{SummaryFile, MarshalCSV(SummaryRecords(b))})
	if laps := LapRecords(b); len(laps) > 0 {
		out = append(out, artifact{LapsFile, MarshalCSV(laps)})
	}

	buckets, err := BuildBuckets(b.Files, groupBy)
	if err != nil {
		return nil, nil, err
	}
	data, err := marshalJSON(buckets)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", BucketsFile, err)
	}
	out = append(out, artifact{BucketsFile, data})
	out = append(out, artifact{NotesFile, []byte(BatchNotes(b) + "\n")})

	if withGPX {
		used := make(map[string]bool)
		for _, f := range b.Files {
			if f.Failed() || f.track == nil {
				continue
			}
			data, err := cleanedGPX(f, b.Options.Analysis)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: cleaned gpx not written: %v", f.Name, err))
				continue
			}
			name := cleanedGPXName(f, used)
			out = append(out, artifact{name, data})
		}
	}
	return out, warnings, nil
}

// BatchNotes renders the text notes of every file followed by the batch
// totals when more than one file was analysed.
func BatchNotes(b *Batch) string {
	parts := make([]string, 0, len(b.Files)+1)
	for _, f := range b.Files {
		if f.Failed() {
			parts = append(parts, fmt.Sprintf("Track: %s\nFailed: %s", f.Name, f.Error))
			continue
		}
		var laps []gpxnotes.Lap
		if len(b.Files) == 1 {
			laps = b.Laps
		}
		parts = append(parts, gpxnotes.BuildTrainingNotes(f.Name, f.Analysis, laps, f.Calories))
	}
	if len(b.Files) > 1 {
		t := b.Total
		parts = append(parts, fmt.Sprintf(
			"Batch: %d files (%d failed) | %.2f km | %s elapsed | +%.0f m",
			t.Files,
			t.FailedFiles,
			t.TotalDistM/1000,
			gpxnotes.FormatHMS(t.ElapsedS),
			t.ElevGainM,
		))
	}
	return strings.Join(parts, "\n\n")
}

func cleanedGPX(f FileResult, opts gpxnotes.Options) ([]byte, error) {
	t := *f.track
	if opts.SmoothingEnabled {
		t.Points = gpxnotes.SmoothPoints(t.Points, opts.SmoothingWindow)
	}
	return track.WriteGPX(&t)
}

func cleanedGPXName(f FileResult, used map[string]bool) string {
	stem := strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	if stem == "" {
		stem = "track"
	}
	name := stem + cleanedGPXSuffix
	if used[name] {
		name = fmt.Sprintf("%s-%d%s", stem, f.Index+1, cleanedGPXSuffix)
	}
	used[name] = true
	return name
}

func resolveFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		if parquetAvailable {
			return FormatParquet, nil
		}
		return FormatCSV, nil
	}
	if format != FormatParquet && format != FormatCSV {
		return "", fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}
	if format == FormatParquet && !parquetAvailable {
		return "", fmt.Errorf("unsupported format %q in this build (expected csv)", format)
	}
	return format, nil
}

// ArtifactNames lists the keys of files in a stable order.
func ArtifactNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set overwrite=true to allow)", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
