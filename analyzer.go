package gpxnotes

import (
	"math"
	"time"

	"github.com/lucasjlepore/gpx-analyzer/track"
)

const (
	secondsPerHour = 3600.0
	earthRadiusM   = 6371000.0
	maxSegmentGapS = 3600.0
	mpsToKmhFactor = 3.6
)

// Segment is the interval between two consecutive retained points.
type Segment struct {
	StartLat     float64  `json:"start_lat"`
	StartLon     float64  `json:"start_lon"`
	EndLat       float64  `json:"end_lat"`
	EndLon       float64  `json:"end_lon"`
	StartOffsetS float64  `json:"start_offset_s"`
	DistanceM    float64  `json:"distance_m"`
	DurationS    float64  `json:"duration_s"`
	SpeedMps     float64  `json:"speed_mps"`
	ElevationUpM float64  `json:"elevation_up_m"`
	Moving       bool     `json:"moving"`
	HRAvg        *float64 `json:"hr_avg_bpm,omitempty"`
	CadenceAvg   *float64 `json:"cadence_avg_rpm,omitempty"`
	PowerAvg     *float64 `json:"power_avg_w,omitempty"`
	EndElevation *float64 `json:"end_elevation_m,omitempty"`
}

// Analysis is the per-file result of the core analyzer. Time-weighted sums and
// denominators are kept so several files can be recombined without bias.
type Analysis struct {
	Points          int            `json:"points"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	StartLat        float64        `json:"start_lat"`
	StartLon        float64        `json:"start_lon"`
	EndLat          float64        `json:"end_lat"`
	EndLon          float64        `json:"end_lon"`
	TotalDistM      float64        `json:"total_distance_m"`
	ElapsedS        float64        `json:"elapsed_s"`
	MovingS         float64        `json:"moving_s"`
	AvgKmhElapsed   float64        `json:"avg_kmh_elapsed"`
	AvgKmhMoving    float64        `json:"avg_kmh_moving"`
	MaxKmh          float64        `json:"max_kmh"`
	MaxKmhRolling   float64        `json:"max_kmh_rolling"`
	ElevGainM       float64        `json:"elevation_gain_m"`
	AvgHR           *float64       `json:"avg_hr_bpm"`
	MaxHR           *float64       `json:"max_hr_bpm"`
	AvgCadence      *float64       `json:"avg_cadence_rpm"`
	MaxCadence      *float64       `json:"max_cadence_rpm"`
	AvgPower        *float64       `json:"avg_power_w"`
	MaxPower        *float64       `json:"max_power_w"`
	HRTimeSum       float64        `json:"hr_time_sum"`
	HRTimeDen       float64        `json:"hr_time_den"`
	CadTimeSum      float64        `json:"cadence_time_sum"`
	CadTimeDen      float64        `json:"cadence_time_den"`
	PowerTimeSum    float64        `json:"power_time_sum"`
	PowerTimeDen    float64        `json:"power_time_den"`
	WorkKJ          float64        `json:"work_kj"`
	NormalizedPower *float64       `json:"normalized_power_w"`
	IntensityFactor *float64       `json:"intensity_factor"`
	TSS             *float64       `json:"training_stress_score"`
	PowerZones      []ZoneDuration `json:"power_zones,omitempty"`
	Segments        []Segment      `json:"segments"`
}

// Analyze runs the full per-file pipeline: elevation smoothing when enabled,
// the core segment walk and the rolling power and speed metrics.
func Analyze(points []track.Point, opts Options) Analysis {
	if opts.SmoothingEnabled {
		points = SmoothPoints(points, opts.SmoothingWindow)
	}
	a := AnalyzePoints(points, opts)
	a.MaxKmhRolling = MaxRollingSpeedKmh(a.Segments, opts.RollingSpeedWindowS)
	a.NormalizedPower = NormalizedPower(a.Segments, opts.NPWindowS)
	a.IntensityFactor = IntensityFactor(a.NormalizedPower, opts.FTPWatts)
	a.TSS = TrainingStress(a.MovingS, a.IntensityFactor)
	a.PowerZones = BuildPowerZones(a.Segments, opts.FTPWatts)
	return a
}

type sensorSum struct {
	sum float64
	den float64
	max *float64
}

func (s *sensorSum) observe(v *float64) {
	if v == nil {
		return
	}
	if s.max == nil || *v > *s.max {
		s.max = floatPtr(*v)
	}
}

func (s *sensorSum) weight(avg *float64, dt float64) {
	if avg == nil {
		return
	}
	s.sum += *avg * dt
	s.den += dt
}

func (s *sensorSum) average() *float64 {
	if s.den <= 0 {
		return nil
	}
	return floatPtr(s.sum / s.den)
}

// AnalyzePoints walks consecutive point pairs of an ordered, deduplicated
// stream. Pairs with a non-positive or over-long gap, or an implied speed above
// the cap, are excluded entirely. Fewer than two points yield a zero Analysis.
func AnalyzePoints(points []track.Point, opts Options) Analysis {
	a := Analysis{Points: len(points), Segments: []Segment{}}
	if len(points) < 2 {
		return a
	}

	first, last := points[0], points[len(points)-1]
	a.StartTime, a.EndTime = first.Time, last.Time
	a.StartLat, a.StartLon = first.Lat, first.Lon
	a.EndLat, a.EndLon = last.Lat, last.Lon

	var (
		maxSpeedMps float64
		pendingUp   float64
		hr, cad     sensorSum
		power       sensorSum
		workJoules  float64
	)
	for i := 0; i+1 < len(points); i++ {
		p1, p2 := points[i], points[i+1]
		dt := p2.Time.Sub(p1.Time).Seconds()
		if dt <= 0 || dt > maxSegmentGapS {
			continue
		}
		d := Haversine(p1.Lat, p1.Lon, p2.Lat, p2.Lon)
		v := d / dt
		if v*mpsToKmhFactor > opts.MaxSpeedCapKmh {
			continue
		}

		moving := v >= opts.MovingSpeedThresholdMps
		a.TotalDistM += d
		if moving {
			a.MovingS += dt
		}
		maxSpeedMps = max(maxSpeedMps, v)

		seg := Segment{
			StartLat:     p1.Lat,
			StartLon:     p1.Lon,
			EndLat:       p2.Lat,
			EndLon:       p2.Lon,
			StartOffsetS: p1.Time.Sub(first.Time).Seconds(),
			DistanceM:    d,
			DurationS:    dt,
			SpeedMps:     v,
			Moving:       moving,
		}

		e1, e2 := elevationOf(p1, opts), elevationOf(p2, opts)
		if e2 != nil {
			seg.EndElevation = floatPtr(*e2)
		}
		if e1 != nil && e2 != nil {
			de := *e2 - *e1
			seg.ElevationUpM = max(0, de)
			switch {
			case de > 0:
				pendingUp += de
			case de < 0:
				// A fall is netted against the pending climb before it is
				// committed, so on sparse tracks 0,100,0,100 counts 100 m.
				pendingUp = max(0, pendingUp+de)
				if pendingUp > 0 && pendingUp >= opts.MinElevationGainM {
					a.ElevGainM += pendingUp
					pendingUp = 0
				}
			}
		}

		hr.observe(p1.HeartRate)
		hr.observe(p2.HeartRate)
		cad.observe(p1.Cadence)
		cad.observe(p2.Cadence)
		power.observe(p1.Power)
		power.observe(p2.Power)

		seg.HRAvg = pairAverage(p1.HeartRate, p2.HeartRate)
		seg.CadenceAvg = pairAverage(aboveFloor(p1.Cadence, opts.CadenceFloorRPM), aboveFloor(p2.Cadence, opts.CadenceFloorRPM))
		seg.PowerAvg = pairAverage(p1.Power, p2.Power)
		if seg.PowerAvg != nil {
			workJoules += *seg.PowerAvg * dt
		}
		if moving || !opts.AvgOnMovingOnly {
			hr.weight(seg.HRAvg, dt)
			cad.weight(seg.CadenceAvg, dt)
			power.weight(seg.PowerAvg, dt)
		}

		a.Segments = append(a.Segments, seg)
	}
	if pendingUp > 0 {
		a.ElevGainM += pendingUp
	}

	a.ElapsedS = last.Time.Sub(first.Time).Seconds()
	a.AvgKmhElapsed = safeDiv(a.TotalDistM, a.ElapsedS) * mpsToKmhFactor
	a.AvgKmhMoving = safeDiv(a.TotalDistM, a.MovingS) * mpsToKmhFactor
	a.MaxKmh = maxSpeedMps * mpsToKmhFactor

	a.AvgHR, a.MaxHR = hr.average(), hr.max
	a.AvgCadence, a.MaxCadence = cad.average(), cad.max
	a.AvgPower, a.MaxPower = power.average(), power.max
	a.HRTimeSum, a.HRTimeDen = hr.sum, hr.den
	a.CadTimeSum, a.CadTimeDen = cad.sum, cad.den
	a.PowerTimeSum, a.PowerTimeDen = power.sum, power.den
	a.WorkKJ = workJoules / 1000.0
	return a
}

// Haversine returns the great-circle distance in metres on a spherical earth.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := math.Pi / 180
	dLat := (lat2 - lat1) * toRad
	dLon := (lon2 - lon1) * toRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*toRad)*math.Cos(lat2*toRad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

func elevationOf(p track.Point, opts Options) *float64 {
	if opts.SmoothingEnabled && p.SmoothedElevation != nil {
		return p.SmoothedElevation
	}
	if p.Elevation != nil && isFinite(*p.Elevation) {
		return p.Elevation
	}
	return nil
}

func pairAverage(a, b *float64) *float64 {
	switch {
	case a != nil && b != nil:
		return floatPtr((*a + *b) / 2)
	case a != nil:
		return floatPtr(*a)
	case b != nil:
		return floatPtr(*b)
	default:
		return nil
	}
}

func aboveFloor(v *float64, floor float64) *float64 {
	if v == nil || *v < floor {
		return nil
	}
	return v
}

// safeDiv returns 0 when the denominator is not a positive finite number.
func safeDiv(num, den float64) float64 {
	if !isFinite(den) || den <= 0 {
		return 0
	}
	return num / den
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func floatPtr(v float64) *float64 {
	out := v
	return &out
}
