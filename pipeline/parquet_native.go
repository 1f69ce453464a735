//go:build !js

package pipeline

import (
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

const parquetAvailable = true

type segmentParquetRow struct {
	File         string  `parquet:"name=file, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FileIndex    int32   `parquet:"name=file_index, type=INT32"`
	Segment      int32   `parquet:"name=segment, type=INT32"`
	StartOffsetS float64 `parquet:"name=start_offset_s, type=DOUBLE"`
	DurationS    float64 `parquet:"name=duration_s, type=DOUBLE"`
	DistanceM    float64 `parquet:"name=distance_m, type=DOUBLE"`
	CumDistanceM float64 `parquet:"name=cum_distance_m, type=DOUBLE"`
	SpeedKmh     float64 `parquet:"name=speed_kmh, type=DOUBLE"`
	ElevationM   float64 `parquet:"name=elevation_m, type=DOUBLE"`
	ElevationUpM float64 `parquet:"name=elevation_up_m, type=DOUBLE"`
	HRBPM        float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	CadenceRPM   float64 `parquet:"name=cadence_rpm, type=DOUBLE"`
	PowerW       float64 `parquet:"name=power_w, type=DOUBLE"`
	Moving       bool    `parquet:"name=moving, type=BOOLEAN"`
	Lat          float64 `parquet:"name=lat, type=DOUBLE"`
	Lon          float64 `parquet:"name=lon, type=DOUBLE"`
}

// marshalSegmentsParquet encodes the series in memory.
func marshalSegmentsParquet(samples []SegmentSample) ([]byte, error) {
	fw := buffer.NewBufferFile()
	if err := writeSegmentRows(fw, samples); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// writeSegmentsParquet streams the series straight to path.
func writeSegmentsParquet(path string, samples []SegmentSample) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	if err := writeSegmentRows(fw, samples); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func writeSegmentRows(fw source.ParquetFile, samples []SegmentSample) error {
	pw, err := writer.NewParquetWriter(fw, new(segmentParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, s := range samples {
		row := segmentParquetRow{
			File:         s.File,
			FileIndex:    int32(s.FileIndex),
			Segment:      int32(s.Index),
			StartOffsetS: s.StartOffsetS,
			DurationS:    s.DurationS,
			DistanceM:    s.DistanceM,
			CumDistanceM: s.CumDistanceM,
			SpeedKmh:     s.SpeedKmh,
			ElevationM:   valueOrNaN(s.ElevationM),
			ElevationUpM: s.ElevationUpM,
			HRBPM:        valueOrNaN(s.HRBPM),
			CadenceRPM:   valueOrNaN(s.CadenceRPM),
			PowerW:       valueOrNaN(s.PowerW),
			Moving:       s.Moving,
			Lat:          s.Lat,
			Lon:          s.Lon,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	return pw.WriteStop()
}
