package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/config"
	"github.com/lucasjlepore/gpx-analyzer/pipeline"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional config file (yaml|json|toml)")
		ftp        = flag.Float64("ftp", 0, "FTP in watts (optional; enables IF, TSS and power zones)")
		lapKm      = flag.Float64("lap-km", 1, "Lap distance in km")
		weightKG   = flag.Float64("weight", 0, "Athlete weight in kg for calorie estimates")
		jsonOut    = flag.Bool("json", false, "Emit the full analysis as JSON")
		showLaps   = flag.Bool("laps", false, "Include the lap table in text output")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path-to-gpx-or-fit-file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ftp":
			settings.FTPWatts = *ftp
		case "lap-km":
			settings.LapDistanceKm = *lapKm
		case "weight":
			settings.WeightKg = *weightKG
		}
	})

	logger := settings.Logger(&logrus.TextFormatter{})
	session := pipeline.NewSession(settings.SessionOptions(), logger)
	batch, err := session.Analyze(context.Background(), []pipeline.Input{pipeline.FileInput(flag.Arg(0))})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}
	file := batch.Files[0]
	if file.Failed() {
		fmt.Fprintf(os.Stderr, "analysis failed: %s\n", file.Error)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(batch); err != nil {
			fmt.Fprintf(os.Stderr, "json encode failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(gpxnotes.BuildTrainingNotes(file.Name, file.Analysis, nil, file.Calories))
	if *showLaps && len(batch.Laps) > 0 {
		fmt.Println()
		fmt.Println("Lap Summary")
		for _, lap := range batch.Laps {
			fmt.Printf(
				"- Lap %02d | %6.2f km | %8s | %6s /km | %5s bpm | %5s W\n",
				lap.Index,
				lap.DistanceKm,
				gpxnotes.FormatHMS(lap.DurationS),
				gpxnotes.FormatPace(lap.PaceMinPerKm),
				gpxnotes.FormatOptional(lap.AvgHR, 0),
				gpxnotes.FormatOptional(lap.AvgPower, 0),
			)
		}
	}
}
