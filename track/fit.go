package track

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/tormoder/fit"
)

// ParseFIT converts the records of a FIT activity into a cleaned point stream.
// Records without a valid position or timestamp are dropped. Session totals
// supply the declared calories.
func ParseFIT(name string, data []byte, agg CalorieAggregation) (*Track, error) {
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("decode FIT file: %w", err)}
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, &ParseError{Name: name, Err: fmt.Errorf("activity FIT expected: %w", err)}
	}

	points := make([]Point, 0, len(activity.Records))
	invalid := 0
	for _, rec := range activity.Records {
		p, ok := recordPoint(rec)
		if !ok {
			invalid++
			continue
		}
		points = append(points, p)
	}
	points, dupes := sortAndDedup(points)

	var calories []float64
	for _, s := range activity.Sessions {
		if s == nil || s.TotalCalories == math.MaxUint16 {
			continue
		}
		calories = append(calories, float64(s.TotalCalories))
	}

	return &Track{
		Name:             name,
		Format:           FormatFIT,
		Points:           points,
		DeclaredCalories: agg.combine(calories),
		DroppedPoints:    invalid + dupes,
	}, nil
}

func recordPoint(rec *fit.RecordMsg) (Point, bool) {
	if rec == nil || rec.PositionLat.Invalid() || rec.PositionLong.Invalid() {
		return Point{}, false
	}
	ts := validTimeOrZero(rec.Timestamp)
	if ts.IsZero() {
		return Point{}, false
	}
	lat, lon := rec.PositionLat.Degrees(), rec.PositionLong.Degrees()
	if !isFinite(lat) || !isFinite(lon) {
		return Point{}, false
	}

	p := Point{Lat: lat, Lon: lon, Time: ts.UTC()}
	if alt := rec.GetEnhancedAltitudeScaled(); isFinite(alt) {
		p.Elevation = floatPtr(alt)
	} else if alt := rec.GetAltitudeScaled(); isFinite(alt) {
		p.Elevation = floatPtr(alt)
	}
	if rec.HeartRate != math.MaxUint8 {
		p.HeartRate = floatPtr(float64(rec.HeartRate))
	}
	if rec.Cadence != math.MaxUint8 {
		p.Cadence = floatPtr(float64(rec.Cadence))
	}
	if rec.Power != math.MaxUint16 {
		p.Power = floatPtr(float64(rec.Power))
	}
	return p, true
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}
