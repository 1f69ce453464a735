package gpxnotes

import (
	"fmt"
	"math"
	"strings"
)

// BuildTrainingNotes turns a file analysis into a plain-text ride summary.
func BuildTrainingNotes(name string, a Analysis, laps []Lap, kcal *float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Track: %s (%d points)\n", name, a.Points)
	if a.Points < 2 || len(a.Segments) == 0 {
		b.WriteString("Not enough valid points to analyse this track.\n")
		return strings.TrimSpace(b.String())
	}
	fmt.Fprintf(&b, "Start: %s\n", a.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(
		&b,
		"Duration %s (moving %s) | Distance %.2f km | Elevation +%.0f m\n",
		formatDuration(a.ElapsedS),
		formatDuration(a.MovingS),
		a.TotalDistM/1000.0,
		a.ElevGainM,
	)
	fmt.Fprintf(
		&b,
		"Speed %.1f avg / %.1f moving / %.1f max (%.1f rolling) km/h | Pace %s min/km\n",
		a.AvgKmhElapsed,
		a.AvgKmhMoving,
		a.MaxKmh,
		a.MaxKmhRolling,
		orDash(FormatPace(PaceMinPerKm(a.AvgKmhElapsed))),
	)
	fmt.Fprintf(
		&b,
		"HR %s avg / %s max bpm | Cadence %s avg rpm | Power %s avg / %s NP W\n",
		orDash(FormatOptional(a.AvgHR, 0)),
		orDash(FormatOptional(a.MaxHR, 0)),
		orDash(FormatOptional(a.AvgCadence, 0)),
		orDash(FormatOptional(a.AvgPower, 0)),
		orDash(FormatOptional(a.NormalizedPower, 0)),
	)
	if a.IntensityFactor != nil && a.TSS != nil {
		fmt.Fprintf(&b, "Load IF %.2f | TSS %.0f | Work %.0f kJ\n", *a.IntensityFactor, *a.TSS, a.WorkKJ)
	} else if a.NormalizedPower != nil {
		b.WriteString("Load IF/TSS unavailable (FTP not provided)\n")
	}
	if kcal != nil {
		fmt.Fprintf(&b, "Energy: %.0f kcal\n", *kcal)
	}

	if len(a.PowerZones) > 0 {
		b.WriteString("\nPower Zone Distribution\n")
		for _, z := range a.PowerZones {
			if z.Seconds <= 0 {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", z.Zone, formatDuration(z.Seconds), z.Percentage)
		}
	}

	if len(laps) > 0 {
		b.WriteString("\nLaps\n")
		for _, l := range laps {
			fmt.Fprintf(
				&b,
				"- #%d %.2f km in %s, %.1f km/h, +%.0f m",
				l.Index,
				l.DistanceKm,
				FormatHMS(l.DurationS),
				l.AvgSpeedKmh,
				l.ElevationUpM,
			)
			if l.AvgHR != nil {
				fmt.Fprintf(&b, ", %.0f bpm", *l.AvgHR)
			}
			if l.AvgPower != nil {
				fmt.Fprintf(&b, ", %.0f W", *l.AvgPower)
			}
			b.WriteByte('\n')
		}
		if fastest, slowest, ok := lapSpread(laps); ok {
			fmt.Fprintf(&b, "- Fastest lap #%d, slowest lap #%d.\n", fastest.Index, slowest.Index)
		}
	}

	b.WriteString("\nNotes\n- ")
	b.WriteString(rideAssessment(a))
	b.WriteByte('\n')

	return strings.TrimSpace(b.String())
}

// lapSpread ignores the trailing partial lap unless it is the only one.
func lapSpread(laps []Lap) (fastest, slowest Lap, ok bool) {
	full := laps
	if len(full) > 1 {
		full = full[:len(full)-1]
	}
	if len(full) < 2 {
		return Lap{}, Lap{}, false
	}
	fastest, slowest = full[0], full[0]
	for _, l := range full[1:] {
		if l.AvgSpeedKmh > fastest.AvgSpeedKmh {
			fastest = l
		}
		if l.AvgSpeedKmh < slowest.AvgSpeedKmh {
			slowest = l
		}
	}
	return fastest, slowest, true
}

func rideAssessment(a Analysis) string {
	stopped := a.ElapsedS - a.MovingS
	switch {
	case a.IntensityFactor != nil && *a.IntensityFactor >= 0.9:
		return "High-intensity load for this duration; prioritize sleep and fueling to absorb the session."
	case a.ElapsedS > 0 && stopped/a.ElapsedS > 0.25:
		return fmt.Sprintf("Stops took %s (%.0f%% of elapsed time); moving averages are the better pacing reference.", formatDuration(stopped), stopped/a.ElapsedS*100)
	case a.TotalDistM > 0 && a.ElevGainM/(a.TotalDistM/1000) >= 15:
		return "Hilly route; expect speed to track climbing rather than fitness."
	default:
		return "Aerobic load appears manageable and supports base development."
	}
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0s"
	}
	s := int(math.Round(seconds))
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
