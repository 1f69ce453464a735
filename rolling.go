package gpxnotes

import "math"

// MaxRollingSpeedKmh returns the highest average speed over any run of
// consecutive segments whose total duration fits within windowS. A single
// segment longer than the window is evaluated on its own.
func MaxRollingSpeedKmh(segments []Segment, windowS float64) float64 {
	if !isFinite(windowS) || windowS <= 0 {
		best := 0.0
		for _, s := range segments {
			best = max(best, s.SpeedMps)
		}
		return best * mpsToKmhFactor
	}

	var (
		best       float64
		sumD, sumT float64
		start      int
	)
	for end, s := range segments {
		sumD += s.DistanceM
		sumT += s.DurationS
		for sumT > windowS && start < end {
			sumD -= segments[start].DistanceM
			sumT -= segments[start].DurationS
			start++
		}
		if sumT > 0 {
			best = max(best, sumD/sumT)
		}
	}
	return best * mpsToKmhFactor
}

type powerSlice struct {
	watts    float64
	duration float64
}

// NormalizedPower computes the time-weighted rolling-average NP over segments.
// Segments without a power reading count as zero watts. It returns nil when no
// segment carries power at all.
func NormalizedPower(segments []Segment, windowS float64) *float64 {
	if !isFinite(windowS) || windowS <= 0 {
		windowS = 30
	}

	var (
		queue     []powerSlice
		queueDur  float64
		queueWork float64
		weighted  float64
		totalDur  float64
		sawPower  bool
	)
	for _, s := range segments {
		watts := 0.0
		if s.PowerAvg != nil {
			watts = *s.PowerAvg
			sawPower = true
		}
		queue = append(queue, powerSlice{watts: watts, duration: s.DurationS})
		queueDur += s.DurationS
		queueWork += watts * s.DurationS

		for queueDur > windowS && len(queue) > 0 {
			excess := queueDur - windowS
			front := &queue[0]
			if front.duration <= excess {
				queueDur -= front.duration
				queueWork -= front.watts * front.duration
				queue = queue[1:]
				continue
			}
			front.duration -= excess
			queueWork -= front.watts * excess
			queueDur = windowS
		}

		rolling := safeDiv(queueWork, queueDur)
		weighted += math.Pow(rolling, 4) * s.DurationS
		totalDur += s.DurationS
	}
	if !sawPower || totalDur <= 0 {
		return nil
	}
	np := math.Pow(weighted/totalDur, 0.25)
	if !isFinite(np) {
		return nil
	}
	return floatPtr(np)
}

// IntensityFactor is NP relative to FTP.
func IntensityFactor(np *float64, ftpWatts float64) *float64 {
	if np == nil || !isFinite(*np) || !isFinite(ftpWatts) || ftpWatts <= 0 {
		return nil
	}
	return floatPtr(*np / ftpWatts)
}

// TrainingStress scores the load of movingS seconds at the given IF.
func TrainingStress(movingS float64, intensity *float64) *float64 {
	if intensity == nil || !isFinite(*intensity) || !isFinite(movingS) {
		return nil
	}
	return floatPtr(movingS / secondsPerHour * *intensity * *intensity * 100)
}

// ZoneDuration stores time spent in a given FTP-based power zone.
type ZoneDuration struct {
	Zone       string  `json:"zone"`
	MinPctFTP  float64 `json:"min_pct_ftp"`
	MaxPctFTP  float64 `json:"max_pct_ftp"`
	Seconds    float64 `json:"seconds"`
	Percentage float64 `json:"percentage"`
}

var powerZoneBounds = []struct {
	zone     string
	min, max float64
}{
	{zone: "Z1 Active Recovery", min: 0, max: 55},
	{zone: "Z2 Endurance", min: 55, max: 75},
	{zone: "Z3 Tempo", min: 75, max: 90},
	{zone: "Z4 Threshold", min: 90, max: 105},
	{zone: "Z5 VO2", min: 105, max: 120},
	{zone: "Z6 Anaerobic", min: 120, max: 150},
	{zone: "Z7 Neuromuscular", min: 150, max: 1000},
}

// BuildPowerZones distributes the duration of powered segments over the
// classic seven FTP zones. It returns nil without an FTP or power data.
func BuildPowerZones(segments []Segment, ftpWatts float64) []ZoneDuration {
	if !isFinite(ftpWatts) || ftpWatts <= 0 {
		return nil
	}

	seconds := make([]float64, len(powerZoneBounds))
	total := 0.0
	for _, s := range segments {
		if s.PowerAvg == nil || *s.PowerAvg < 0 {
			continue
		}
		percent := *s.PowerAvg / ftpWatts * 100.0
		for i, z := range powerZoneBounds {
			if percent >= z.min && percent < z.max {
				seconds[i] += s.DurationS
				total += s.DurationS
				break
			}
		}
	}
	if total == 0 {
		return nil
	}

	out := make([]ZoneDuration, 0, len(powerZoneBounds))
	for i, z := range powerZoneBounds {
		out = append(out, ZoneDuration{
			Zone:       z.zone,
			MinPctFTP:  z.min,
			MaxPctFTP:  z.max,
			Seconds:    seconds[i],
			Percentage: seconds[i] / total * 100.0,
		})
	}
	return out
}
