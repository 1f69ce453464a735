package track

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// DetectFormat identifies the track format from the file extension, falling
// back to content sniffing.
func DetectFormat(name string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gpx", ".xml":
		return FormatGPX, nil
	case ".fit":
		return FormatFIT, nil
	}
	if len(data) >= 12 && string(data[8:12]) == ".FIT" {
		return FormatFIT, nil
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatGPX, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
}

// Parse decodes one track file of any supported format.
func Parse(name string, data []byte, agg CalorieAggregation) (*Track, error) {
	format, err := DetectFormat(name, data)
	if err != nil {
		return nil, err
	}
	if format == FormatFIT {
		return ParseFIT(name, data, agg)
	}
	return ParseGPX(name, data, agg)
}
