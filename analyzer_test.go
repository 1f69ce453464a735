package gpxnotes

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/lucasjlepore/gpx-analyzer/track"
)

var testStart = time.Date(2025, 6, 1, 7, 0, 0, 0, time.UTC)

// northOf returns the latitude reached by moving metres due north of 46°N.
func northOf(metres float64) float64 {
	return 46.0 + metres*180/(math.Pi*earthRadiusM)
}

type pointSpec struct {
	offsetS float64
	northM  float64
	ele     *float64
	hr      *float64
	cad     *float64
	power   *float64
}

func buildPoints(specs ...pointSpec) []track.Point {
	out := make([]track.Point, 0, len(specs))
	for _, s := range specs {
		out = append(out, track.Point{
			Lat:       northOf(s.northM),
			Lon:       7.0,
			Time:      testStart.Add(time.Duration(s.offsetS * float64(time.Second))),
			Elevation: s.ele,
			HeartRate: s.hr,
			Cadence:   s.cad,
			Power:     s.power,
		})
	}
	return out
}

func rawOptions() Options {
	opts := DefaultOptions()
	opts.SmoothingEnabled = false
	return opts
}

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s: got %.9f want %.9f (tol %g)", name, got, want, tol)
	}
}

func TestAnalyzeTwoPointTrack(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0},
		pointSpec{offsetS: 60, northM: 100},
	)
	a := AnalyzePoints(points, rawOptions())

	approx(t, "distance", a.TotalDistM, 100, 1e-6)
	approx(t, "elapsed", a.ElapsedS, 60, 0)
	approx(t, "moving", a.MovingS, 60, 0)
	approx(t, "max kmh", a.MaxKmh, 6, 1e-6)
	approx(t, "elevation", a.ElevGainM, 0, 0)
	if a.AvgHR != nil || a.MaxHR != nil {
		t.Fatalf("expected no heart rate, got %v/%v", a.AvgHR, a.MaxHR)
	}
	if len(a.Segments) != 1 {
		t.Fatalf("expected one segment, got %d", len(a.Segments))
	}

	slow := rawOptions()
	slow.MovingSpeedThresholdMps = 2
	if got := AnalyzePoints(points, slow).MovingS; got != 0 {
		t.Fatalf("expected no moving time above 2 m/s threshold, got %v", got)
	}
}

func TestElevationHysteresisTrace(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0, ele: floatPtr(0)},
		pointSpec{offsetS: 10, northM: 20, ele: floatPtr(5)},
		pointSpec{offsetS: 20, northM: 40, ele: floatPtr(3)},
	)
	opts := rawOptions()
	opts.MinElevationGainM = 2

	a := AnalyzePoints(points, opts)
	approx(t, "elevation gain", a.ElevGainM, 3, 1e-12)
	if a.Segments[0].ElevationUpM != 5 || a.Segments[1].ElevationUpM != 0 {
		t.Fatalf("unexpected per-segment climb: %v, %v", a.Segments[0].ElevationUpM, a.Segments[1].ElevationUpM)
	}
}

func TestElevationHysteresisNetsFullDescent(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0, ele: floatPtr(0)},
		pointSpec{offsetS: 10, northM: 20, ele: floatPtr(100)},
		pointSpec{offsetS: 20, northM: 40, ele: floatPtr(0)},
		pointSpec{offsetS: 30, northM: 60, ele: floatPtr(100)},
	)
	opts := rawOptions()
	opts.MinElevationGainM = 2

	approx(t, "elevation gain", AnalyzePoints(points, opts).ElevGainM, 100, 1e-12)
}

func TestElevationHysteresisMatchesNetRise(t *testing.T) {
	const cycles = 20
	specs := []pointSpec{{offsetS: 0, northM: 0, ele: floatPtr(0)}}
	naive := 0.0
	for j := 0; j < cycles; j++ {
		base := float64(j)
		n := len(specs)
		specs = append(specs,
			pointSpec{offsetS: float64(n) * 5, northM: float64(n) * 20, ele: floatPtr(base + 1.5)},
			pointSpec{offsetS: float64(n+1) * 5, northM: float64(n+1) * 20, ele: floatPtr(base + 1.0)},
		)
		naive += 1.5
	}
	opts := rawOptions()
	opts.MinElevationGainM = 1

	a := AnalyzePoints(buildPoints(specs...), opts)
	approx(t, "elevation gain", a.ElevGainM, cycles, 1e-9)
	if a.ElevGainM >= naive {
		t.Fatalf("gain %v should be below the naive positive sum %v", a.ElevGainM, naive)
	}

	jitter := buildPoints(
		pointSpec{offsetS: 0, northM: 0, ele: floatPtr(10)},
		pointSpec{offsetS: 5, northM: 20, ele: floatPtr(10.5)},
		pointSpec{offsetS: 10, northM: 40, ele: floatPtr(10)},
		pointSpec{offsetS: 15, northM: 60, ele: floatPtr(10.5)},
		pointSpec{offsetS: 20, northM: 80, ele: floatPtr(10)},
	)
	if got := AnalyzePoints(jitter, opts).ElevGainM; got != 0 {
		t.Fatalf("sub-threshold jitter should not count, got %v", got)
	}
}

func TestSpeedCapExcludesPair(t *testing.T) {
	jumpM := 200 / 3.6 * 10
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0},
		pointSpec{offsetS: 10, northM: 100},
		pointSpec{offsetS: 20, northM: 100 + jumpM},
	)

	capped := AnalyzePoints(points, rawOptions())
	if len(capped.Segments) != 1 {
		t.Fatalf("expected the 200 km/h pair to be excluded, got %d segments", len(capped.Segments))
	}
	approx(t, "distance", capped.TotalDistM, 100, 1e-6)
	approx(t, "moving", capped.MovingS, 10, 0)
	approx(t, "max kmh", capped.MaxKmh, 36, 1e-6)

	loose := rawOptions()
	loose.MaxSpeedCapKmh = 250
	open := AnalyzePoints(points, loose)
	if len(open.Segments) != len(capped.Segments)+1 {
		t.Fatalf("expected exactly one more segment without the cap, got %d", len(open.Segments))
	}
	approx(t, "uncapped max kmh", open.MaxKmh, 200, 1e-6)
}

func TestLongGapIsSkipped(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0},
		pointSpec{offsetS: 10, northM: 50},
		pointSpec{offsetS: 4000, northM: 100},
	)
	a := AnalyzePoints(points, rawOptions())
	if len(a.Segments) != 1 {
		t.Fatalf("expected the hour-plus gap to be skipped, got %d segments", len(a.Segments))
	}
	approx(t, "elapsed", a.ElapsedS, 4000, 0)
	approx(t, "distance", a.TotalDistM, 50, 1e-6)
}

func TestSensorAveraging(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0, hr: floatPtr(100), cad: floatPtr(5), power: floatPtr(100)},
		pointSpec{offsetS: 10, northM: 50, hr: floatPtr(120), cad: floatPtr(90)},
		pointSpec{offsetS: 20, northM: 50, hr: floatPtr(180), power: floatPtr(400)},
		pointSpec{offsetS: 30, northM: 100},
	)
	a := AnalyzePoints(points, rawOptions())

	if len(a.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(a.Segments))
	}
	seg := a.Segments[0]
	if seg.HRAvg == nil || *seg.HRAvg != 110 {
		t.Fatalf("expected hr avg 110, got %v", seg.HRAvg)
	}
	if seg.CadenceAvg == nil || *seg.CadenceAvg != 90 {
		t.Fatalf("cadence below the floor should be ignored, got %v", seg.CadenceAvg)
	}
	if seg.PowerAvg == nil || *seg.PowerAvg != 100 {
		t.Fatalf("single-sided power should be used as is, got %v", seg.PowerAvg)
	}
	if a.Segments[1].Moving {
		t.Fatalf("stationary segment marked moving")
	}

	// Only moving segments (0 and 2) feed the averages.
	if a.AvgHR == nil {
		t.Fatalf("expected avg hr")
	}
	approx(t, "avg hr", *a.AvgHR, (110*10+180*10)/20.0, 1e-9)
	if a.MaxHR == nil || *a.MaxHR != 180 {
		t.Fatalf("expected max hr 180, got %v", a.MaxHR)
	}
	if a.MaxCadence == nil || *a.MaxCadence != 90 {
		t.Fatalf("expected max cadence 90, got %v", a.MaxCadence)
	}
	approx(t, "work", a.WorkKJ, (100*10+400*10+400*10)/1000.0, 1e-9)

	all := rawOptions()
	all.AvgOnMovingOnly = false
	b := AnalyzePoints(points, all)
	approx(t, "avg hr all segments", *b.AvgHR, (110*10+150*10+180*10)/30.0, 1e-9)
}

func TestShortTrackYieldsZeroAnalysis(t *testing.T) {
	for _, n := range []int{0, 1} {
		points := buildPoints(pointSpec{offsetS: 0, northM: 0})[:n]
		a := Analyze(points, DefaultOptions())
		if a.Points != n || a.TotalDistM != 0 || a.ElapsedS != 0 || a.MaxKmh != 0 {
			t.Fatalf("expected zero analysis for %d points, got %+v", n, a)
		}
		if a.Segments == nil || len(a.Segments) != 0 {
			t.Fatalf("expected empty segment list")
		}
		if a.AvgHR != nil || a.NormalizedPower != nil || a.TSS != nil {
			t.Fatalf("expected nil optional metrics")
		}
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	specs := make([]pointSpec, 0, 40)
	for i := 0; i < 40; i++ {
		specs = append(specs, pointSpec{
			offsetS: float64(i * 3),
			northM:  float64(i*i) * 0.7,
			ele:     floatPtr(100 + math.Sin(float64(i))*3),
			hr:      floatPtr(130 + float64(i%7)),
			power:   floatPtr(180 + float64(i%11)*5),
		})
	}
	points := SmoothPoints(buildPoints(specs...), 5)
	opts := DefaultOptions()
	opts.FTPWatts = 250

	first := AnalyzePoints(points, opts)
	second := AnalyzePoints(points, opts)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("analysis is not deterministic")
	}
	if !reflect.DeepEqual(Analyze(points, opts), Analyze(points, opts)) {
		t.Fatalf("full analysis is not deterministic")
	}
}

func TestAnalyzeUsesSmoothedElevation(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0, ele: floatPtr(100)},
		pointSpec{offsetS: 10, northM: 30, ele: floatPtr(100)},
		pointSpec{offsetS: 20, northM: 60, ele: floatPtr(70)},
		pointSpec{offsetS: 30, northM: 90, ele: floatPtr(100)},
		pointSpec{offsetS: 40, northM: 120, ele: floatPtr(100)},
	)
	opts := DefaultOptions()
	opts.SmoothingWindow = 3

	if got := Analyze(points, opts).ElevGainM; got != 0 {
		t.Fatalf("median filter should remove the single dip, got %v", got)
	}
	opts.SmoothingEnabled = false
	if got := Analyze(points, opts).ElevGainM; got != 30 {
		t.Fatalf("raw elevation should count the climb out of the dip, got %v", got)
	}
}

func TestHaversine(t *testing.T) {
	approx(t, "same point", Haversine(46, 7, 46, 7), 0, 0)
	approx(t, "one degree of latitude", Haversine(0, 0, 1, 0), math.Pi*earthRadiusM/180, 1e-6)
}
