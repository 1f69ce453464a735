//go:build js && wasm

package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"syscall/js"
	"time"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/pipeline"
	"github.com/lucasjlepore/gpx-analyzer/track"
	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	l.SetLevel(logrus.WarnLevel)
	return l
}

func main() {
	js.Global().Set("analyzeGpx", js.FuncOf(analyzeGpx))
	select {}
}

// analyzeGpx(files: Array<{name: string, bytes: Uint8Array}>, options: object)
func analyzeGpx(_ js.Value, args []js.Value) any {
	if len(args) < 2 {
		return failure("expected arguments: files(Array<{name, bytes}>), options(object)")
	}
	filesArg := args[0]
	optsArg := args[1]
	if filesArg.IsUndefined() || filesArg.IsNull() || filesArg.Get("length").Int() == 0 {
		return failure("at least one track file is required")
	}

	inputs := make([]pipeline.Input, 0, filesArg.Get("length").Int())
	for i := 0; i < filesArg.Get("length").Int(); i++ {
		entry := filesArg.Index(i)
		name := getString(entry, "name", fmt.Sprintf("track-%d.gpx", i+1))
		data := entry.Get("bytes")
		if data.IsUndefined() || data.IsNull() {
			return failure(fmt.Sprintf("%s: bytes are required", name))
		}
		buf := make([]byte, data.Get("length").Int())
		js.CopyBytesToGo(buf, data)
		inputs = append(inputs, pipeline.BytesInput(name, buf))
	}

	opts := pipeline.DefaultSessionOptions()
	opts.Analysis.FTPWatts = getFloat(optsArg, "ftp_w", 0)
	opts.Analysis.LapDistanceKm = getFloat(optsArg, "lap_km", opts.Analysis.LapDistanceKm)
	opts.Analysis.SmoothingEnabled = getBool(optsArg, "smoothing", opts.Analysis.SmoothingEnabled)
	opts.Analysis.MovingSpeedThresholdMps = getFloat(optsArg, "moving_threshold_mps", opts.Analysis.MovingSpeedThresholdMps)
	opts.CalorieMethod = gpxnotes.CalorieMethod(getString(optsArg, "calories", string(opts.CalorieMethod)))
	opts.CalorieAggregation = track.CalorieAggregation(getString(optsArg, "calorie_aggregation", string(opts.CalorieAggregation)))
	opts.Athlete = gpxnotes.Athlete{
		WeightKg: getFloat(optsArg, "weight_kg", 0),
		Age:      getFloat(optsArg, "age", 0),
		Sex:      gpxnotes.Sex(getString(optsArg, "sex", "")),
	}

	session := pipeline.NewSession(opts, logger)
	result, err := pipeline.RunBytes(context.Background(), session, pipeline.BytesOptions{
		Inputs:   inputs,
		Format:   pipeline.FormatCSV,
		GroupBy:  getString(optsArg, "group_by", pipeline.GroupByFile),
		WriteGPX: getBool(optsArg, "cleaned_gpx", false),
	})
	if err != nil {
		return failure(err.Error())
	}

	zipBytes, err := zipArtifacts(result.Files)
	if err != nil {
		return failure(fmt.Sprintf("create zip: %v", err))
	}
	payload := js.Global().Get("Uint8Array").New(len(zipBytes))
	js.CopyBytesToJS(payload, zipBytes)

	return map[string]any{
		"ok":       true,
		"zip":      payload,
		"batch":    string(result.Files[pipeline.BatchFile]),
		"buckets":  string(result.Files[pipeline.BucketsFile]),
		"notes":    string(result.Files[pipeline.NotesFile]),
		"warnings": stringsToAny(result.Warnings),
		"files":    stringsToAny(pipeline.ArtifactNames(result.Files)),
	}
}

func failure(msg string) map[string]any {
	return map[string]any{
		"ok":    false,
		"error": msg,
	}
}

func zipArtifacts(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fixedTime := time.Unix(0, 0).UTC()

	for _, name := range pipeline.ArtifactNames(files) {
		h := &zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		}
		h.SetModTime(fixedTime)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(files[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getString(v js.Value, key, fallback string) string {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() {
		return fallback
	}
	s := out.String()
	if s == "" || s == "undefined" || s == "null" {
		return fallback
	}
	return s
}

func getFloat(v js.Value, key string, fallback float64) float64 {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.IsUndefined() || out.IsNull() || out.Type() != js.TypeNumber {
		return fallback
	}
	return out.Float()
}

func getBool(v js.Value, key string, fallback bool) bool {
	if v.IsUndefined() || v.IsNull() {
		return fallback
	}
	out := v.Get(key)
	if out.Type() != js.TypeBoolean {
		return fallback
	}
	return out.Bool()
}

func stringsToAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
