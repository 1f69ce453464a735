package gpxnotes

import (
	"math"
	"sort"

	"github.com/lucasjlepore/gpx-analyzer/track"
)

// MedianSmooth applies a sliding median over values. NaN marks a missing
// sample. Even windows are reduced by one; the window is clipped at both ends.
// An index whose neighbourhood has no finite value keeps its original value.
func MedianSmooth(values []float64, window int) []float64 {
	if window%2 == 0 {
		window--
	}
	window = max(window, 1)
	half := window / 2

	out := make([]float64, len(values))
	buf := make([]float64, 0, window)
	for i := range values {
		buf = buf[:0]
		for j := max(0, i-half); j <= min(len(values)-1, i+half); j++ {
			if isFinite(values[j]) {
				buf = append(buf, values[j])
			}
		}
		if len(buf) == 0 {
			out[i] = values[i]
			continue
		}
		out[i] = median(buf)
	}
	return out
}

func median(sorted []float64) float64 {
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// SmoothPoints returns a copy of points with SmoothedElevation filled in from
// the median-filtered raw elevation.
func SmoothPoints(points []track.Point, window int) []track.Point {
	raw := make([]float64, len(points))
	for i, p := range points {
		raw[i] = valueOrNaN(p.Elevation)
	}
	smoothed := MedianSmooth(raw, window)

	out := make([]track.Point, len(points))
	copy(out, points)
	for i := range out {
		out[i].SmoothedElevation = nil
		if isFinite(smoothed[i]) {
			out[i].SmoothedElevation = floatPtr(smoothed[i])
		}
	}
	return out
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
