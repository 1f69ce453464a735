package gpxnotes

import "time"

// AggregateSummary holds cross-file totals. Averages are recomputed from the
// summed totals and weighted sums, never by averaging per-file averages.
type AggregateSummary struct {
	Files         int       `json:"files"`
	FailedFiles   int       `json:"failed_files"`
	Points        int       `json:"points"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalDistM    float64   `json:"total_distance_m"`
	ElapsedS      float64   `json:"elapsed_s"`
	MovingS       float64   `json:"moving_s"`
	AvgKmhElapsed float64   `json:"avg_kmh_elapsed"`
	AvgKmhMoving  float64   `json:"avg_kmh_moving"`
	MaxKmh        float64   `json:"max_kmh"`
	MaxKmhRolling float64   `json:"max_kmh_rolling"`
	ElevGainM     float64   `json:"elevation_gain_m"`
	AvgHR         *float64  `json:"avg_hr_bpm"`
	MaxHR         *float64  `json:"max_hr_bpm"`
	AvgCadence    *float64  `json:"avg_cadence_rpm"`
	MaxCadence    *float64  `json:"max_cadence_rpm"`
	AvgPower      *float64  `json:"avg_power_w"`
	MaxPower      *float64  `json:"max_power_w"`
	HRTimeSum     float64   `json:"hr_time_sum"`
	HRTimeDen     float64   `json:"hr_time_den"`
	CadTimeSum    float64   `json:"cadence_time_sum"`
	CadTimeDen    float64   `json:"cadence_time_den"`
	PowerTimeSum  float64   `json:"power_time_sum"`
	PowerTimeDen  float64   `json:"power_time_den"`
	WorkKJ        float64   `json:"work_kj"`
	Calories      *float64  `json:"calories_kcal"`
	TSS           *float64  `json:"training_stress_score"`
}

// Aggregator accumulates per-file analyses. It is not safe for concurrent use;
// every batch owns its own Aggregator.
type Aggregator struct {
	s AggregateSummary
}

// Add folds one analysed file and its calorie estimate into the totals.
func (g *Aggregator) Add(a Analysis, kcal *float64) {
	s := &g.s
	s.Files++
	s.Points += a.Points
	if !a.StartTime.IsZero() && (s.StartTime.IsZero() || a.StartTime.Before(s.StartTime)) {
		s.StartTime = a.StartTime
	}
	if a.EndTime.After(s.EndTime) {
		s.EndTime = a.EndTime
	}
	s.TotalDistM += a.TotalDistM
	s.ElapsedS += a.ElapsedS
	s.MovingS += a.MovingS
	s.ElevGainM += a.ElevGainM
	s.MaxKmh = max(s.MaxKmh, a.MaxKmh)
	s.MaxKmhRolling = max(s.MaxKmhRolling, a.MaxKmhRolling)
	s.MaxHR = maxOptional(s.MaxHR, a.MaxHR)
	s.MaxCadence = maxOptional(s.MaxCadence, a.MaxCadence)
	s.MaxPower = maxOptional(s.MaxPower, a.MaxPower)
	s.HRTimeSum += a.HRTimeSum
	s.HRTimeDen += a.HRTimeDen
	s.CadTimeSum += a.CadTimeSum
	s.CadTimeDen += a.CadTimeDen
	s.PowerTimeSum += a.PowerTimeSum
	s.PowerTimeDen += a.PowerTimeDen
	s.WorkKJ += a.WorkKJ
	s.Calories = sumOptional(s.Calories, kcal)
	s.TSS = sumOptional(s.TSS, a.TSS)
}

// AddFailed counts a file that could not be analysed.
func (g *Aggregator) AddFailed() {
	g.s.Files++
	g.s.FailedFiles++
}

// Summary returns the totals with averages derived from the accumulated sums.
func (g *Aggregator) Summary() AggregateSummary {
	s := g.s
	s.AvgKmhElapsed = safeDiv(s.TotalDistM, s.ElapsedS) * mpsToKmhFactor
	s.AvgKmhMoving = safeDiv(s.TotalDistM, s.MovingS) * mpsToKmhFactor
	s.AvgHR = weightedAverage(s.HRTimeSum, s.HRTimeDen)
	s.AvgCadence = weightedAverage(s.CadTimeSum, s.CadTimeDen)
	s.AvgPower = weightedAverage(s.PowerTimeSum, s.PowerTimeDen)
	return s
}

func weightedAverage(sum, den float64) *float64 {
	if den <= 0 {
		return nil
	}
	return floatPtr(sum / den)
}

func maxOptional(a, b *float64) *float64 {
	switch {
	case b == nil:
		return a
	case a == nil || *b > *a:
		return floatPtr(*b)
	default:
		return a
	}
}

func sumOptional(a, b *float64) *float64 {
	if b == nil || !isFinite(*b) {
		return a
	}
	if a == nil {
		return floatPtr(*b)
	}
	return floatPtr(*a + *b)
}
