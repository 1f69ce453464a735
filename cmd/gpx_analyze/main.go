package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/config"
	"github.com/lucasjlepore/gpx-analyzer/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional config file (yaml|json|toml)")
		outDir     = flag.String("out", "", "Output directory")
		format     = flag.String("format", "parquet", "Segment series format: parquet|csv")
		groupBy    = flag.String("group-by", "file", "Chart buckets: file|week|month")
		ftp        = flag.Float64("ftp", 0, "FTP in watts for IF/TSS and power zones")
		lapKm      = flag.Float64("lap-km", 1, "Lap distance in km")
		weightKG   = flag.Float64("weight", 0, "Athlete weight in kg")
		age        = flag.Float64("age", 0, "Athlete age in years")
		sex        = flag.String("sex", "", "Athlete sex for the heart-rate model: male|female")
		calories   = flag.String("calories", "auto", "Calorie method: none|auto|hr|met")
		aggregate  = flag.String("calorie-aggregation", "max", "Repeated calorie elements: max|sum")
		overwrite  = flag.Bool("overwrite", false, "Allow writing into non-empty output directories")
		writeGPX   = flag.Bool("gpx", false, "Also write cleaned GPX tracks")
		logLevel   = flag.String("log-level", "info", "Log level")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --out outdir [--ftp 250] [--format parquet|csv] track.gpx [more.gpx ride.fit ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*outDir) == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gpx_analyze failed: %v\n", err)
		os.Exit(1)
	}
	// Explicit flags win over the config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			settings.Format = *format
		case "group-by":
			settings.GroupBy = *groupBy
		case "ftp":
			settings.FTPWatts = *ftp
		case "lap-km":
			settings.LapDistanceKm = *lapKm
		case "weight":
			settings.WeightKg = *weightKG
		case "age":
			settings.Age = *age
		case "sex":
			settings.Sex = *sex
		case "calories":
			settings.CalorieMethod = *calories
		case "calorie-aggregation":
			settings.CalorieAggregation = *aggregate
		case "log-level":
			settings.LogLevel = *logLevel
		}
	})
	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "gpx_analyze failed: %v\n", err)
		os.Exit(2)
	}

	logger := settings.Logger(&logrus.TextFormatter{FullTimestamp: true})
	session := pipeline.NewSession(settings.SessionOptions(), logger)

	bar := progressbar.Default(int64(flag.NArg()), "Analysing")
	session.Progress = func(done, total int, name string) {
		bar.Describe(name)
		_ = bar.Set(done)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := pipeline.Run(ctx, session, pipeline.Options{
		Paths:     flag.Args(),
		OutDir:    *outDir,
		Format:    settings.Format,
		GroupBy:   settings.GroupBy,
		Overwrite: *overwrite,
		WriteGPX:  *writeGPX,
	})
	_ = bar.Finish()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gpx_analyze failed: %v\n", err)
		os.Exit(1)
	}

	total := result.Batch.Total
	fmt.Printf("gpx_analyze complete (session %s)\n", result.Batch.SessionID)
	fmt.Printf("Files:               %d (%d failed)\n", total.Files, total.FailedFiles)
	fmt.Printf("Distance:            %.2f km in %s\n", total.TotalDistM/1000, gpxnotes.FormatHMS(total.ElapsedS))
	fmt.Printf("Output dir:          %s\n", result.OutputDir)
	fmt.Printf("batch.json:          %s\n", result.BatchPath)
	fmt.Printf("summary.csv:         %s\n", result.SummaryPath)
	if result.LapsPath != "" {
		fmt.Printf("laps.csv:            %s\n", result.LapsPath)
	}
	fmt.Printf("segments:            %s\n", result.SegmentsPath)
	fmt.Printf("buckets.json:        %s\n", result.BucketsPath)
	fmt.Printf("notes.txt:           %s\n", result.NotesPath)
	for _, p := range result.GPXPaths {
		fmt.Printf("cleaned gpx:         %s\n", p)
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning:             %s\n", w)
	}
}
