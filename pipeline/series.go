package pipeline

import (
	"math"
	"strconv"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
)

// SegmentSamples flattens the segments of every successful file into chart
// rows, with the distance axis restarting at zero for each file.
func SegmentSamples(b *Batch) []SegmentSample {
	n := 0
	for _, f := range b.Files {
		n += len(f.Analysis.Segments)
	}
	out := make([]SegmentSample, 0, n)
	for _, f := range b.Files {
		cum := 0.0
		for i, seg := range f.Analysis.Segments {
			cum += seg.DistanceM
			out = append(out, SegmentSample{
				File:         f.Name,
				FileIndex:    f.Index,
				Index:        i,
				StartOffsetS: seg.StartOffsetS,
				DurationS:    seg.DurationS,
				DistanceM:    seg.DistanceM,
				CumDistanceM: cum,
				SpeedKmh:     seg.SpeedMps * 3.6,
				ElevationM:   seg.EndElevation,
				ElevationUpM: seg.ElevationUpM,
				HRBPM:        seg.HRAvg,
				CadenceRPM:   seg.CadenceAvg,
				PowerW:       seg.PowerAvg,
				Moving:       seg.Moving,
				Lat:          seg.EndLat,
				Lon:          seg.EndLon,
			})
		}
	}
	return out
}

// SeriesRecords renders samples for the CSV series artifact.
func SeriesRecords(samples []SegmentSample) []Record {
	out := make([]Record, 0, len(samples))
	for _, s := range samples {
		out = append(out, Record{
			{"file", s.File},
			{"file_index", strconv.Itoa(s.FileIndex)},
			{"segment", strconv.Itoa(s.Index)},
			{"start_offset_s", gpxnotes.FormatFloat(s.StartOffsetS, 3)},
			{"duration_s", gpxnotes.FormatFloat(s.DurationS, 3)},
			{"distance_m", gpxnotes.FormatFloat(s.DistanceM, 2)},
			{"cum_distance_m", gpxnotes.FormatFloat(s.CumDistanceM, 2)},
			{"speed_kmh", gpxnotes.FormatFloat(s.SpeedKmh, 2)},
			{"elevation_m", gpxnotes.FormatOptional(s.ElevationM, 1)},
			{"elevation_up_m", gpxnotes.FormatFloat(s.ElevationUpM, 2)},
			{"hr_bpm", gpxnotes.FormatOptional(s.HRBPM, 1)},
			{"cadence_rpm", gpxnotes.FormatOptional(s.CadenceRPM, 1)},
			{"power_w", gpxnotes.FormatOptional(s.PowerW, 1)},
			{"moving", strconv.FormatBool(s.Moving)},
			{"lat", gpxnotes.FormatFloat(s.Lat, 7)},
			{"lon", gpxnotes.FormatFloat(s.Lon, 7)},
		})
	}
	return out
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
