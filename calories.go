package gpxnotes

import "fmt"

// CalorieMethod selects how energy expenditure is estimated.
type CalorieMethod string

const (
	CalorieNone CalorieMethod = "none"
	CalorieAuto CalorieMethod = "auto"
	CalorieHR   CalorieMethod = "hr"
	CalorieMET  CalorieMethod = "met"
)

// ParseCalorieMethod validates a textual method; empty selects CalorieAuto.
func ParseCalorieMethod(s string) (CalorieMethod, error) {
	switch m := CalorieMethod(s); m {
	case "":
		return CalorieAuto, nil
	case CalorieNone, CalorieAuto, CalorieHR, CalorieMET:
		return m, nil
	default:
		return "", fmt.Errorf("unknown calorie method %q (expected none|auto|hr|met)", s)
	}
}

// Sex picks the coefficient set of the heart-rate regression.
type Sex string

const (
	SexUnknown Sex = ""
	SexMale    Sex = "male"
	SexFemale  Sex = "female"
)

// ParseSex validates a textual sex; empty means unknown.
func ParseSex(s string) (Sex, error) {
	switch x := Sex(s); x {
	case SexUnknown, SexMale, SexFemale:
		return x, nil
	default:
		return "", fmt.Errorf("unknown sex %q (expected male|female)", s)
	}
}

// Athlete carries the personal inputs of the calorie models. Zero values mean
// unknown.
type Athlete struct {
	WeightKg float64 `json:"weight_kg"`
	Age      float64 `json:"age"`
	Sex      Sex     `json:"sex"`
}

// CaloriePolicy is the estimator configuration shared by a file and its laps.
// TotalElapsedS is the whole file's elapsed time used to prorate declared
// calories.
type CaloriePolicy struct {
	Method           CalorieMethod
	DeclaredCalories *float64
	TotalElapsedS    float64
	Athlete          Athlete
}

// CalorieInput describes the stretch of activity being estimated.
type CalorieInput struct {
	AvgKmh    float64
	DurationS float64
	AvgHR     *float64
	WorkKJ    *float64
}

// EstimateCalories returns kcal for the input under the policy, or nil when the
// chosen method has no usable inputs.
//
// The auto method prefers, in order: mechanical work from power, prorated
// declared calories, the heart-rate regression, and the MET table.
func EstimateCalories(in CalorieInput, p CaloriePolicy) *float64 {
	switch p.Method {
	case CalorieHR:
		return EstimateCaloriesHR(in.AvgHR, in.DurationS, p.Athlete)
	case CalorieMET:
		return EstimateCaloriesMET(in.AvgKmh, in.DurationS, p.Athlete.WeightKg)
	case CalorieAuto:
	default:
		return nil
	}

	// Gross efficiency near 24% makes kJ of work roughly equal to kcal burned.
	if in.WorkKJ != nil && isFinite(*in.WorkKJ) && *in.WorkKJ > 0 {
		return floatPtr(*in.WorkKJ)
	}
	if p.DeclaredCalories != nil && isFinite(*p.DeclaredCalories) && isFinite(p.TotalElapsedS) && p.TotalElapsedS > 0 {
		return floatPtr(*p.DeclaredCalories * (in.DurationS / p.TotalElapsedS))
	}
	if kcal := EstimateCaloriesHR(in.AvgHR, in.DurationS, p.Athlete); kcal != nil && *kcal > 0 {
		return kcal
	}
	return EstimateCaloriesMET(in.AvgKmh, in.DurationS, p.Athlete.WeightKg)
}

// KeytelKcalPerMin is the Keytel et al. (2005) heart-rate regression.
func KeytelKcalPerMin(hr float64, ath Athlete) *float64 {
	if !isFinite(hr) || !validPositive(ath.WeightKg) || !validPositive(ath.Age) {
		return nil
	}
	w, age := ath.WeightKg, ath.Age
	switch ath.Sex {
	case SexMale:
		return floatPtr((-55.0969 + 0.6309*hr + 0.1988*w + 0.2017*age) / 4.184)
	case SexFemale:
		return floatPtr((-20.4022 + 0.4472*hr - 0.1263*w + 0.074*age) / 4.184)
	default:
		return nil
	}
}

// EstimateCaloriesHR scales the Keytel rate to durationS.
func EstimateCaloriesHR(avgHR *float64, durationS float64, ath Athlete) *float64 {
	if avgHR == nil || !isFinite(durationS) {
		return nil
	}
	perMin := KeytelKcalPerMin(*avgHR, ath)
	if perMin == nil {
		return nil
	}
	return floatPtr(*perMin * durationS / 60)
}

// METFromSpeed maps a cycling speed to a metabolic equivalent. Non-positive or
// non-finite speeds are treated as rest.
func METFromSpeed(kmh float64) float64 {
	switch {
	case !isFinite(kmh) || kmh <= 0:
		return 1.2
	case kmh < 16:
		return 4
	case kmh < 19:
		return 6
	case kmh < 22:
		return 8
	case kmh < 25:
		return 10
	case kmh < 30:
		return 12
	default:
		return 16
	}
}

// EstimateCaloriesMET returns MET x kg x hours.
func EstimateCaloriesMET(avgKmh, durationS, weightKg float64) *float64 {
	if !validPositive(weightKg) || !isFinite(durationS) {
		return nil
	}
	return floatPtr(METFromSpeed(avgKmh) * weightKg * durationS / secondsPerHour)
}

// FileCalories estimates the whole-file energy from its analysis. Declared
// calories prorate to their full value over the elapsed time.
func FileCalories(a Analysis, method CalorieMethod, declared *float64, ath Athlete) *float64 {
	policy := CaloriePolicy{
		Method:           method,
		DeclaredCalories: declared,
		TotalElapsedS:    a.ElapsedS,
		Athlete:          ath,
	}
	in := CalorieInput{
		AvgKmh:    a.AvgKmhElapsed,
		DurationS: a.ElapsedS,
		AvgHR:     a.AvgHR,
	}
	if a.WorkKJ > 0 {
		in.WorkKJ = floatPtr(a.WorkKJ)
	}
	return EstimateCalories(in, policy)
}

func validPositive(v float64) bool {
	return isFinite(v) && v > 0
}
