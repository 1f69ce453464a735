package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Bucket groupings.
const (
	GroupByFile  = "file"
	GroupByWeek  = "week"
	GroupByMonth = "month"
)

// ParseGroupBy validates a grouping; empty selects GroupByFile.
func ParseGroupBy(s string) (string, error) {
	switch s {
	case "", GroupByFile:
		return GroupByFile, nil
	case GroupByWeek, GroupByMonth:
		return s, nil
	default:
		return "", fmt.Errorf("unknown grouping %q (expected file|week|month)", s)
	}
}

// Bucket is one bar of the distance and climbing charts.
type Bucket struct {
	Key               string    `json:"key"`
	Start             time.Time `json:"start"`
	DistanceKm        float64   `json:"distance_km"`
	ElevationGainM    float64   `json:"elevation_gain_m"`
	CumDistanceKm     float64   `json:"cum_distance_km"`
	CumElevationGainM float64   `json:"cum_elevation_gain_m"`
	Files             int       `json:"files"`
}

// BuildBuckets groups successful files by file, ISO week or calendar month and
// orders the buckets by their earliest start. Failed files are skipped, as are
// files without timestamps when grouping by time.
func BuildBuckets(files []FileResult, groupBy string) ([]Bucket, error) {
	groupBy, err := ParseGroupBy(groupBy)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*Bucket)
	order := make([]string, 0, len(files))
	for _, f := range files {
		if f.Failed() {
			continue
		}
		start := f.Analysis.StartTime
		id, label, ok := bucketKey(f, groupBy)
		if !ok {
			continue
		}
		b, seen := byKey[id]
		if !seen {
			b = &Bucket{Key: label, Start: start}
			byKey[id] = b
			order = append(order, id)
		}
		if !start.IsZero() && (b.Start.IsZero() || start.Before(b.Start)) {
			b.Start = start
		}
		b.DistanceKm += f.Analysis.TotalDistM / 1000
		b.ElevationGainM += f.Analysis.ElevGainM
		b.Files++
	}

	out := make([]Bucket, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	var cumDist, cumElev float64
	for i := range out {
		cumDist += out[i].DistanceKm
		cumElev += out[i].ElevationGainM
		out[i].CumDistanceKm = cumDist
		out[i].CumElevationGainM = cumElev
	}
	return out, nil
}

// bucketKey returns the grouping identity and its display label.
func bucketKey(f FileResult, groupBy string) (id, label string, ok bool) {
	start := f.Analysis.StartTime.UTC()
	switch groupBy {
	case GroupByWeek:
		if start.IsZero() {
			return "", "", false
		}
		year, week := start.ISOWeek()
		label = fmt.Sprintf("%04d-W%02d", year, week)
		return label, label, true
	case GroupByMonth:
		if start.IsZero() {
			return "", "", false
		}
		label = start.Format("2006-01")
		return label, label, true
	default:
		return strconv.Itoa(f.Index), f.Name, true
	}
}
