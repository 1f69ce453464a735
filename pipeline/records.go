package pipeline

import (
	"bytes"
	"strconv"
	"strings"

	gpxnotes "github.com/lucasjlepore/gpx-analyzer"
)

// Field is one named column value.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Record is an ordered row of the tabular outputs.
type Record []Field

// Get returns the value stored under key.
func (r Record) Get(key string) (string, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// TotalRowName labels the aggregate row of the summary table.
const TotalRowName = "total"

// SummaryRecords returns one row per file in input order plus a total row when
// the batch covered any time or distance.
func SummaryRecords(b *Batch) []Record {
	out := make([]Record, 0, len(b.Files)+1)
	for _, f := range b.Files {
		out = append(out, fileRecord(f))
	}
	t := b.Total
	if t.ElapsedS > 0 || t.TotalDistM > 0 {
		out = append(out, summaryRow(summaryValues{
			name:          TotalRowName,
			points:        t.Points,
			distM:         t.TotalDistM,
			elapsedS:      t.ElapsedS,
			movingS:       t.MovingS,
			avgKmhElapsed: t.AvgKmhElapsed,
			avgKmhMoving:  t.AvgKmhMoving,
			maxKmh:        t.MaxKmh,
			maxKmhRolling: t.MaxKmhRolling,
			elevGainM:     t.ElevGainM,
			avgHR:         t.AvgHR,
			maxHR:         t.MaxHR,
			avgCadence:    t.AvgCadence,
			avgPower:      t.AvgPower,
			tss:           t.TSS,
			kcal:          t.Calories,
		}))
	}
	return out
}

func fileRecord(f FileResult) Record {
	a := f.Analysis
	return summaryRow(summaryValues{
		name:          f.Name,
		points:        a.Points,
		distM:         a.TotalDistM,
		elapsedS:      a.ElapsedS,
		movingS:       a.MovingS,
		avgKmhElapsed: a.AvgKmhElapsed,
		avgKmhMoving:  a.AvgKmhMoving,
		maxKmh:        a.MaxKmh,
		maxKmhRolling: a.MaxKmhRolling,
		elevGainM:     a.ElevGainM,
		avgHR:         a.AvgHR,
		maxHR:         a.MaxHR,
		avgCadence:    a.AvgCadence,
		avgPower:      a.AvgPower,
		np:            a.NormalizedPower,
		ifactor:       a.IntensityFactor,
		tss:           a.TSS,
		kcal:          f.Calories,
	})
}

type summaryValues struct {
	name                               string
	points                             int
	distM, elapsedS, movingS           float64
	avgKmhElapsed, avgKmhMoving        float64
	maxKmh, maxKmhRolling, elevGainM   float64
	avgHR, maxHR, avgCadence, avgPower *float64
	np, ifactor, tss, kcal             *float64
}

func summaryRow(v summaryValues) Record {
	return Record{
		{"file", v.name},
		{"points", strconv.Itoa(v.points)},
		{"total_km", gpxnotes.FormatFloat(v.distM/1000, 3)},
		{"elapsed", gpxnotes.FormatHMS(v.elapsedS)},
		{"moving", gpxnotes.FormatHMS(v.movingS)},
		{"avg_kmh_elapsed", gpxnotes.FormatFloat(v.avgKmhElapsed, 2)},
		{"avg_kmh_moving", gpxnotes.FormatFloat(v.avgKmhMoving, 2)},
		{"max_kmh", gpxnotes.FormatFloat(v.maxKmh, 2)},
		{"max_kmh_rolling", gpxnotes.FormatFloat(v.maxKmhRolling, 2)},
		{"avg_pace", gpxnotes.FormatPace(gpxnotes.PaceMinPerKm(v.avgKmhElapsed))},
		{"elev_gain_m", gpxnotes.FormatFloat(v.elevGainM, 1)},
		{"avg_hr", gpxnotes.FormatOptional(v.avgHR, 0)},
		{"max_hr", gpxnotes.FormatOptional(v.maxHR, 0)},
		{"avg_cadence", gpxnotes.FormatOptional(v.avgCadence, 0)},
		{"avg_power", gpxnotes.FormatOptional(v.avgPower, 0)},
		{"np_w", gpxnotes.FormatOptional(v.np, 0)},
		{"if", gpxnotes.FormatOptional(v.ifactor, 2)},
		{"tss", gpxnotes.FormatOptional(v.tss, 1)},
		{"calories_kcal", gpxnotes.FormatOptional(v.kcal, 0)},
	}
}

// LapRecords returns the lap table of a single-file batch, empty otherwise.
func LapRecords(b *Batch) []Record {
	if len(b.Laps) == 0 || len(b.Files) != 1 {
		return nil
	}
	name := b.Files[0].Name
	out := make([]Record, 0, len(b.Laps))
	for _, l := range b.Laps {
		out = append(out, Record{
			{"file", name},
			{"lap", strconv.Itoa(l.Index)},
			{"lap_km", gpxnotes.FormatFloat(l.DistanceKm, 3)},
			{"lap_time", gpxnotes.FormatHMS(l.DurationS)},
			{"lap_avg_kmh", gpxnotes.FormatFloat(l.AvgSpeedKmh, 2)},
			{"lap_pace", gpxnotes.FormatPace(l.PaceMinPerKm)},
			{"lap_elev_up_m", gpxnotes.FormatFloat(l.ElevationUpM, 1)},
			{"lap_avg_hr", gpxnotes.FormatOptional(l.AvgHR, 0)},
			{"lap_avg_cadence", gpxnotes.FormatOptional(l.AvgCadence, 0)},
			{"lap_avg_power", gpxnotes.FormatOptional(l.AvgPower, 0)},
			{"lap_kcal", gpxnotes.FormatOptional(l.Calories, 0)},
		})
	}
	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MarshalCSV renders records as spreadsheet-friendly CSV: a UTF-8 byte order
// mark, a header taken from the first record, and every field quoted.
func MarshalCSV(records []Record) []byte {
	if len(records) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	header := make([]string, len(records[0]))
	for i, f := range records[0] {
		header[i] = f.Key
	}
	writeQuotedRow(&buf, header)

	row := make([]string, 0, len(header))
	for _, r := range records {
		row = row[:0]
		for _, f := range r {
			row = append(row, f.Value)
		}
		writeQuotedRow(&buf, row)
	}
	return buf.Bytes()
}

func writeQuotedRow(buf *bytes.Buffer, fields []string) {
	for i, v := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(v, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}
