//go:build js

package pipeline

import "errors"

const parquetAvailable = false

var errNoParquet = errors.New("parquet output is not available in the browser build")

func marshalSegmentsParquet([]SegmentSample) ([]byte, error) {
	return nil, errNoParquet
}

func writeSegmentsParquet(string, []SegmentSample) error {
	return errNoParquet
}
