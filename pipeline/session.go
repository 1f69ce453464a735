package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
	"github.com/lucasjlepore/gpx-analyzer/track"
	"github.com/sirupsen/logrus"
)

// Input is one track file waiting to be analysed. Load is called once, when
// the session reaches the file.
type Input struct {
	Name string
	Load func() ([]byte, error)
}

// BytesInput wraps content that is already in memory.
func BytesInput(name string, data []byte) Input {
	return Input{
		Name: name,
		Load: func() ([]byte, error) { return data, nil },
	}
}

// FileInput reads path lazily.
func FileInput(path string) Input {
	return Input{
		Name: filepath.Base(path),
		Load: func() ([]byte, error) { return os.ReadFile(path) },
	}
}

// DefaultSessionOptions returns the analysis defaults with automatic calories
// and max-based declared calorie aggregation.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		Analysis:           gpxnotes.DefaultOptions(),
		CalorieMethod:      gpxnotes.CalorieAuto,
		CalorieAggregation: track.CaloriesMax,
	}
}

// Validate checks every option group.
func (o SessionOptions) Validate() error {
	var errs []error
	if err := o.Analysis.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := gpxnotes.ParseCalorieMethod(string(o.CalorieMethod)); err != nil {
		errs = append(errs, err)
	}
	if _, err := gpxnotes.ParseSex(string(o.Athlete.Sex)); err != nil {
		errs = append(errs, err)
	}
	if _, err := track.ParseCalorieAggregation(string(o.CalorieAggregation)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Session owns the working state of one analysis run. Sessions are not safe
// for concurrent use; concurrent callers create one session each.
type Session struct {
	ID       uuid.UUID
	Options  SessionOptions
	Logger   logrus.FieldLogger
	Progress func(done, total int, name string)
}

// NewSession creates a session with a fresh ID. A nil logger discards output.
func NewSession(opts SessionOptions, logger logrus.FieldLogger) *Session {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Session{
		ID:      uuid.New(),
		Options: opts,
		Logger:  logger,
	}
}

// Analyze processes inputs strictly in order. A file that cannot be loaded or
// parsed keeps its slot as a zero row with Error set; only batch-level
// problems are returned as errors.
func (s *Session) Analyze(ctx context.Context, inputs []Input) (*Batch, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input files")
	}
	if err := s.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	method, _ := gpxnotes.ParseCalorieMethod(string(s.Options.CalorieMethod))
	agg, _ := track.ParseCalorieAggregation(string(s.Options.CalorieAggregation))

	log := s.Logger.WithField("session", s.ID.String())
	batch := &Batch{
		SessionID: s.ID.String(),
		Options:   s.Options,
		Files:     make([]FileResult, 0, len(inputs)),
	}
	var totals gpxnotes.Aggregator

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analysis interrupted after %d of %d files: %w", i, len(inputs), err)
		}
		flog := log.WithFields(logrus.Fields{"file": in.Name, "index": i})

		fr, err := s.analyzeOne(i, in, method, agg)
		if err != nil {
			fr = FileResult{Index: i, Name: in.Name, Error: err.Error()}
			totals.AddFailed()
			flog.WithError(err).Warn("file skipped")
		} else {
			totals.Add(fr.Analysis, fr.Calories)
			flog.WithFields(logrus.Fields{
				"points":   fr.Analysis.Points,
				"dropped":  fr.DroppedPoints,
				"distance": fr.Analysis.TotalDistM,
				"elapsed":  fr.Analysis.ElapsedS,
			}).Debug("file analysed")
		}
		batch.Files = append(batch.Files, fr)

		if s.Progress != nil {
			s.Progress(i+1, len(inputs), in.Name)
		}
	}

	batch.Total = totals.Summary()
	if len(batch.Files) == 1 && !batch.Files[0].Failed() {
		f := batch.Files[0]
		batch.Laps = gpxnotes.DistanceLaps(f.Analysis.Segments, s.Options.Analysis.LapDistanceKm, gpxnotes.CaloriePolicy{
			Method:           method,
			DeclaredCalories: f.DeclaredCalories,
			TotalElapsedS:    f.Analysis.ElapsedS,
			Athlete:          s.Options.Athlete,
		})
	}

	log.WithFields(logrus.Fields{
		"files":    batch.Total.Files,
		"failed":   batch.Total.FailedFiles,
		"distance": batch.Total.TotalDistM,
		"laps":     len(batch.Laps),
	}).Info("batch analysed")
	return batch, nil
}

func (s *Session) analyzeOne(index int, in Input, method gpxnotes.CalorieMethod, agg track.CalorieAggregation) (FileResult, error) {
	if in.Load == nil {
		return FileResult{}, fmt.Errorf("no content for %s", in.Name)
	}
	data, err := in.Load()
	if err != nil {
		return FileResult{}, fmt.Errorf("read %s: %w", in.Name, err)
	}
	t, err := track.Parse(in.Name, data, agg)
	if err != nil {
		return FileResult{}, err
	}

	a := gpxnotes.Analyze(t.Points, s.Options.Analysis)
	return FileResult{
		Index:            index,
		Name:             in.Name,
		Title:            strings.TrimSpace(t.Title),
		Format:           t.Format,
		DroppedPoints:    t.DroppedPoints,
		DeclaredCalories: t.DeclaredCalories,
		Analysis:         a,
		Calories:         gpxnotes.FileCalories(a, method, t.DeclaredCalories, s.Options.Athlete),
		track:            t,
	}, nil
}
