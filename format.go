package gpxnotes

import (
	"fmt"
	"math"
	"strconv"
)

// FormatHMS renders seconds as hh:mm:ss, clamping negatives to zero.
func FormatHMS(seconds float64) string {
	if !isFinite(seconds) || seconds < 0 {
		seconds = 0
	}
	s := int(math.Round(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// FormatFloat rounds v to the given number of decimals and drops trailing
// zeros, the way spreadsheet exports expect.
func FormatFloat(v float64, decimals int) string {
	if !isFinite(v) {
		return ""
	}
	scale := math.Pow(10, float64(decimals))
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0 // drop negative zero
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// FormatOptional is FormatFloat for nullable values; nil renders empty.
func FormatOptional(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v, decimals)
}

func formatClock(minutes, seconds int) string {
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
