package gpxnotes

import "math"

// lapEpsilonM is the smallest leftover distance emitted as a trailing lap.
const lapEpsilonM = 1e-9

// Lap is one fixed-distance slice of a track.
type Lap struct {
	Index        int      `json:"index"`
	DistanceKm   float64  `json:"distance_km"`
	DurationS    float64  `json:"duration_s"`
	AvgSpeedKmh  float64  `json:"avg_speed_kmh"`
	PaceMinPerKm *float64 `json:"pace_min_per_km"`
	ElevationUpM float64  `json:"elevation_up_m"`
	AvgHR        *float64 `json:"avg_hr_bpm"`
	AvgCadence   *float64 `json:"avg_cadence_rpm"`
	AvgPower     *float64 `json:"avg_power_w"`
	Calories     *float64 `json:"calories_kcal"`
}

type lapBuffer struct {
	distM, durS, elevUp float64
	hr, cad, power      sensorSum
}

func (b *lapBuffer) add(seg Segment, distM, durS, elevUp float64) {
	b.distM += distM
	b.durS += durS
	b.elevUp += max(0, elevUp)
	b.hr.weight(seg.HRAvg, durS)
	b.cad.weight(seg.CadenceAvg, durS)
	b.power.weight(seg.PowerAvg, durS)
}

func (b *lapBuffer) close(index int, policy CaloriePolicy) Lap {
	kmh := safeDiv(b.distM, b.durS) * mpsToKmhFactor
	lap := Lap{
		Index:        index,
		DistanceKm:   b.distM / 1000,
		DurationS:    b.durS,
		AvgSpeedKmh:  kmh,
		PaceMinPerKm: PaceMinPerKm(kmh),
		ElevationUpM: b.elevUp,
		AvgHR:        b.hr.average(),
		AvgCadence:   b.cad.average(),
		AvgPower:     b.power.average(),
	}
	in := CalorieInput{AvgKmh: kmh, DurationS: b.durS, AvgHR: lap.AvgHR}
	if b.power.sum > 0 {
		in.WorkKJ = floatPtr(b.power.sum / 1000)
	}
	lap.Calories = EstimateCalories(in, policy)
	return lap
}

// DistanceLaps re-slices segments into laps of lapDistanceKm. A segment that
// crosses a lap boundary is split in proportion to distance, apportioning its
// time, climb and sensor weights; one segment may close several laps. A final
// partial lap is included so lap distances add up to the track distance.
func DistanceLaps(segments []Segment, lapDistanceKm float64, policy CaloriePolicy) []Lap {
	if !isFinite(lapDistanceKm) || lapDistanceKm <= 0 {
		return nil
	}
	lapM := lapDistanceKm * 1000

	var (
		laps []Lap
		buf  lapBuffer
	)
	for _, seg := range segments {
		remain, remainT, remainE := seg.DistanceM, seg.DurationS, seg.ElevationUpM
		for {
			need := lapM - buf.distM
			if remain <= need {
				buf.add(seg, remain, remainT, remainE)
				break
			}
			ratio := need / remain
			buf.add(seg, need, remainT*ratio, remainE*ratio)
			laps = append(laps, buf.close(len(laps)+1, policy))
			buf = lapBuffer{}

			remain -= need
			remainT *= 1 - ratio
			remainE *= 1 - ratio
		}
	}
	if buf.distM > lapEpsilonM {
		laps = append(laps, buf.close(len(laps)+1, policy))
	}
	return laps
}

// PaceMinPerKm converts a speed to minutes per kilometre; nil when not moving.
func PaceMinPerKm(kmh float64) *float64 {
	if !isFinite(kmh) || kmh <= 0 {
		return nil
	}
	return floatPtr(60 / kmh)
}

// FormatPace renders a pace as m:ss, or an empty string when absent.
func FormatPace(minPerKm *float64) string {
	if minPerKm == nil || !isFinite(*minPerKm) || *minPerKm < 0 {
		return ""
	}
	total := int(math.Round(*minPerKm * 60))
	return formatClock(total/60, total%60)
}
