package gpxnotes

import (
	"math"
	"testing"
)

func TestMedianSmooth(t *testing.T) {
	got := MedianSmooth([]float64{10, 12, math.NaN(), 11, 50}, 3)
	want := []float64{11, 11, 11.5, 30.5, 30.5}
	for i := range want {
		approx(t, "smoothed", got[i], want[i], 1e-12)
	}

	even := MedianSmooth([]float64{1, 9, 2, 8}, 4)
	odd := MedianSmooth([]float64{1, 9, 2, 8}, 3)
	for i := range even {
		if even[i] != odd[i] {
			t.Fatalf("even window should behave as window-1 at %d: %v vs %v", i, even[i], odd[i])
		}
	}

	identity := MedianSmooth([]float64{3, 1, 2}, 0)
	if identity[0] != 3 || identity[1] != 1 || identity[2] != 2 {
		t.Fatalf("window below one should be clamped to one, got %v", identity)
	}

	missing := MedianSmooth([]float64{math.NaN(), math.NaN()}, 3)
	if !math.IsNaN(missing[0]) || !math.IsNaN(missing[1]) {
		t.Fatalf("all-missing neighbourhood should keep the original value, got %v", missing)
	}
}

func TestSmoothPointsLeavesInputUntouched(t *testing.T) {
	points := buildPoints(
		pointSpec{offsetS: 0, northM: 0, ele: floatPtr(10)},
		pointSpec{offsetS: 1, northM: 1},
		pointSpec{offsetS: 2, northM: 2, ele: floatPtr(30)},
	)
	out := SmoothPoints(points, 3)
	for _, p := range points {
		if p.SmoothedElevation != nil {
			t.Fatalf("input points were modified")
		}
	}
	if out[1].SmoothedElevation == nil || *out[1].SmoothedElevation != 20 {
		t.Fatalf("expected gap to be filled with 20, got %v", out[1].SmoothedElevation)
	}
	if out[1].Elevation != nil {
		t.Fatalf("raw elevation must stay absent")
	}
}

func constantSegments(n int, distM, durS float64, power *float64) []Segment {
	out := make([]Segment, n)
	for i := range out {
		out[i] = Segment{DistanceM: distM, DurationS: durS, SpeedMps: distM / durS, PowerAvg: power}
	}
	return out
}

func TestMaxRollingSpeedSmoothsSpike(t *testing.T) {
	segs := constantSegments(11, 10, 1, nil)
	segs[5].DistanceM = 30
	segs[5].SpeedMps = 30

	approx(t, "rolling max", MaxRollingSpeedKmh(segs, 5), 50.4, 1e-9)
	approx(t, "no window", MaxRollingSpeedKmh(segs, 0), 108, 1e-9)

	long := []Segment{{DistanceM: 100, DurationS: 20, SpeedMps: 5}}
	approx(t, "single long segment", MaxRollingSpeedKmh(long, 5), 18, 1e-9)

	if MaxRollingSpeedKmh(nil, 5) != 0 {
		t.Fatalf("expected zero for no segments")
	}
}

func TestNormalizedPower(t *testing.T) {
	if NormalizedPower(constantSegments(60, 5, 1, nil), 30) != nil {
		t.Fatalf("expected nil NP without power")
	}

	steady := NormalizedPower(constantSegments(120, 5, 1, floatPtr(200)), 30)
	if steady == nil {
		t.Fatalf("expected NP for steady power")
	}
	approx(t, "steady NP", *steady, 200, 1e-9)

	// Coasting counts as zero watts, so NP must fall below the pedalling power.
	mixed := append(constantSegments(60, 5, 1, floatPtr(300)), constantSegments(60, 5, 1, nil)...)
	np := NormalizedPower(mixed, 30)
	if np == nil || *np >= 300 || *np <= 0 {
		t.Fatalf("expected 0 < NP < 300 with coasting, got %v", np)
	}

	// A 30 s window sees a partial front slice once a long segment spills over.
	partial := []Segment{
		{DurationS: 20, PowerAvg: floatPtr(100)},
		{DurationS: 20, PowerAvg: floatPtr(300)},
	}
	got := NormalizedPower(partial, 30)
	rolling := (100*10 + 300*20) / 30.0
	want := math.Pow((math.Pow(100, 4)*20+math.Pow(rolling, 4)*20)/40, 0.25)
	approx(t, "partial eviction NP", *got, want, 1e-9)
}

func TestIntensityAndStress(t *testing.T) {
	if IntensityFactor(floatPtr(200), 0) != nil {
		t.Fatalf("expected nil IF without FTP")
	}
	if IntensityFactor(nil, 250) != nil {
		t.Fatalf("expected nil IF without NP")
	}
	if IntensityFactor(floatPtr(math.NaN()), 250) != nil {
		t.Fatalf("expected nil IF for NaN NP")
	}
	ifactor := IntensityFactor(floatPtr(200), 250)
	approx(t, "IF", *ifactor, 0.8, 1e-12)

	tss := TrainingStress(3600, ifactor)
	approx(t, "TSS", *tss, 64, 1e-9)
	if TrainingStress(3600, nil) != nil {
		t.Fatalf("expected nil TSS without IF")
	}
}

func TestBuildPowerZones(t *testing.T) {
	segs := []Segment{
		{DurationS: 30, PowerAvg: floatPtr(100)},
		{DurationS: 10, PowerAvg: floatPtr(260)},
		{DurationS: 60},
	}
	zones := BuildPowerZones(segs, 250)
	if len(zones) != 7 {
		t.Fatalf("expected 7 zones, got %d", len(zones))
	}
	approx(t, "z1 seconds", zones[0].Seconds, 30, 0)
	approx(t, "z4 seconds", zones[3].Seconds, 10, 0)
	approx(t, "z1 pct", zones[0].Percentage, 75, 1e-9)
	if BuildPowerZones(segs, 0) != nil {
		t.Fatalf("expected no zones without FTP")
	}
}

func TestCalorieMethods(t *testing.T) {
	ath := Athlete{WeightKg: 70, Age: 30, Sex: SexMale}
	in := CalorieInput{AvgKmh: 20, DurationS: 3600}

	if EstimateCalories(in, CaloriePolicy{Method: CalorieNone, Athlete: ath}) != nil {
		t.Fatalf("method none must return nil")
	}

	auto := EstimateCalories(in, CaloriePolicy{Method: CalorieAuto, Athlete: ath})
	met := EstimateCalories(in, CaloriePolicy{Method: CalorieMET, Athlete: ath})
	if auto == nil || met == nil {
		t.Fatalf("expected MET based estimates, got %v / %v", auto, met)
	}
	approx(t, "met kcal", *met, 560, 1e-9)
	if *auto != *met {
		t.Fatalf("auto without power, declared calories or HR must equal MET: %v vs %v", *auto, *met)
	}

	withHR := in
	withHR.AvgHR = floatPtr(150)
	hr := EstimateCalories(withHR, CaloriePolicy{Method: CalorieHR, Athlete: ath})
	approx(t, "keytel male", *hr, 14.222060229445509*60, 1e-6)
	autoHR := EstimateCalories(withHR, CaloriePolicy{Method: CalorieAuto, Athlete: ath})
	if *autoHR != *hr {
		t.Fatalf("auto with HR should use the HR estimate")
	}

	female := Athlete{WeightKg: 60, Age: 40, Sex: SexFemale}
	perMin := KeytelKcalPerMin(150, female)
	approx(t, "keytel female", *perMin, 10.05253346080306, 1e-9)

	declared := CaloriePolicy{Method: CalorieAuto, DeclaredCalories: floatPtr(600), TotalElapsedS: 3600, Athlete: ath}
	half := withHR
	half.DurationS = 1800
	approx(t, "prorated declared", *EstimateCalories(half, declared), 300, 1e-9)

	withWork := half
	withWork.WorkKJ = floatPtr(410)
	approx(t, "work first", *EstimateCalories(withWork, declared), 410, 0)

	noSex := Athlete{WeightKg: 70, Age: 30}
	if EstimateCalories(withHR, CaloriePolicy{Method: CalorieHR, Athlete: noSex}) != nil {
		t.Fatalf("hr method needs a known sex")
	}
	if EstimateCalories(in, CaloriePolicy{Method: CalorieMET, Athlete: Athlete{WeightKg: math.NaN()}}) != nil {
		t.Fatalf("met method needs a finite weight")
	}
	if EstimateCaloriesHR(floatPtr(150), 60, Athlete{WeightKg: 70, Age: 0, Sex: SexMale}) != nil {
		t.Fatalf("non-positive age is unavailable")
	}
}

func TestMETFromSpeed(t *testing.T) {
	cases := []struct {
		kmh  float64
		want float64
	}{
		{math.NaN(), 1.2},
		{-3, 1.2},
		{0, 1.2},
		{15.9, 4},
		{16, 6},
		{18.99, 6},
		{21, 8},
		{24, 10},
		{29.9, 12},
		{30, 16},
		{55, 16},
	}
	for _, tc := range cases {
		if got := METFromSpeed(tc.kmh); got != tc.want {
			t.Fatalf("METFromSpeed(%v) = %v, want %v", tc.kmh, got, tc.want)
		}
	}
}

func TestFileCaloriesFallsBackToMET(t *testing.T) {
	// 20 km/h for an hour with no power or HR.
	specs := make([]pointSpec, 0, 61)
	for i := 0; i <= 60; i++ {
		specs = append(specs, pointSpec{offsetS: float64(i * 60), northM: float64(i) * 20000 / 60})
	}
	a := Analyze(buildPoints(specs...), DefaultOptions())
	ath := Athlete{WeightKg: 70}

	auto := FileCalories(a, CalorieAuto, nil, ath)
	met := FileCalories(a, CalorieMET, nil, ath)
	if auto == nil || met == nil || *auto != *met {
		t.Fatalf("auto should fall back to MET: %v vs %v", auto, met)
	}
	approx(t, "kcal", *met, 560, 1e-3)

	declared := FileCalories(a, CalorieAuto, floatPtr(777), ath)
	approx(t, "declared", *declared, 777, 1e-9)
}

func TestDistanceLapsSplitsProportionally(t *testing.T) {
	segs := []Segment{
		{DistanceM: 400, DurationS: 100, ElevationUpM: 4, HRAvg: floatPtr(120)},
		{DistanceM: 400, DurationS: 100, ElevationUpM: 4, HRAvg: floatPtr(140)},
		{DistanceM: 400, DurationS: 100, ElevationUpM: 4, HRAvg: floatPtr(160)},
	}
	laps := DistanceLaps(segs, 1, CaloriePolicy{Method: CalorieNone})
	if len(laps) != 2 {
		t.Fatalf("expected a full and a partial lap, got %d", len(laps))
	}
	approx(t, "lap1 km", laps[0].DistanceKm, 1, 1e-12)
	approx(t, "lap1 time", laps[0].DurationS, 250, 1e-9)
	approx(t, "lap1 elev", laps[0].ElevationUpM, 10, 1e-9)
	approx(t, "lap1 hr", *laps[0].AvgHR, (120*100+140*100+160*50)/250.0, 1e-9)
	approx(t, "lap1 kmh", laps[0].AvgSpeedKmh, 14.4, 1e-9)
	approx(t, "lap1 pace", *laps[0].PaceMinPerKm, 60/14.4, 1e-9)
	approx(t, "lap2 km", laps[1].DistanceKm, 0.2, 1e-12)
	approx(t, "lap2 time", laps[1].DurationS, 50, 1e-9)
	if laps[1].Index != 2 || laps[1].Calories != nil {
		t.Fatalf("unexpected lap 2: %+v", laps[1])
	}

	long := []Segment{{DistanceM: 2500, DurationS: 250}}
	laps = DistanceLaps(long, 1, CaloriePolicy{Method: CalorieNone})
	if len(laps) != 3 {
		t.Fatalf("expected one segment to span three laps, got %d", len(laps))
	}
	for i, want := range []float64{100, 100, 50} {
		approx(t, "spanning lap time", laps[i].DurationS, want, 1e-9)
	}

	if DistanceLaps(segs, 0, CaloriePolicy{}) != nil {
		t.Fatalf("expected no laps for zero lap distance")
	}
}

func TestDistanceLapsConserveDistance(t *testing.T) {
	specs := make([]pointSpec, 0, 200)
	north := 0.0
	for i := 0; i < 200; i++ {
		north += 3 + math.Mod(float64(i)*7.3, 11)
		specs = append(specs, pointSpec{offsetS: float64(i * 2), northM: north, power: floatPtr(150 + float64(i%9)*10)})
	}
	a := Analyze(buildPoints(specs...), DefaultOptions())
	policy := CaloriePolicy{Method: CalorieAuto, TotalElapsedS: a.ElapsedS}

	for _, lapKm := range []float64{0.1, 0.25, 1.0 / 3, 1, 5} {
		laps := DistanceLaps(a.Segments, lapKm, policy)
		total := 0.0
		for i, l := range laps {
			total += l.DistanceKm
			if l.DurationS <= 0 {
				t.Fatalf("lap %d of %v km has no time", i+1, lapKm)
			}
			if l.Calories == nil || *l.Calories <= 0 {
				t.Fatalf("expected power-based lap calories, got %v", l.Calories)
			}
		}
		want := a.TotalDistM / 1000
		if math.Abs(total-want) > 1e-6*want {
			t.Fatalf("lap distance %v km does not add up to %v km for %v km laps", total, want, lapKm)
		}
	}
}

func TestPaceFormatting(t *testing.T) {
	if PaceMinPerKm(0) != nil {
		t.Fatalf("expected nil pace when stopped")
	}
	if got := FormatPace(PaceMinPerKm(12)); got != "5:00" {
		t.Fatalf("unexpected pace %q", got)
	}
	if got := FormatPace(PaceMinPerKm(24.1)); got != "2:29" {
		t.Fatalf("unexpected pace %q", got)
	}
	if got := FormatPace(floatPtr(4.9999)); got != "5:00" {
		t.Fatalf("seconds should carry into minutes, got %q", got)
	}
	if got := FormatHMS(3725.4); got != "01:02:05" {
		t.Fatalf("unexpected hms %q", got)
	}
	if got := FormatFloat(12.3456, 2); got != "12.35" {
		t.Fatalf("unexpected float %q", got)
	}
}
