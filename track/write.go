package track

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/tkrajina/gpxgo/gpx"
)

const (
	gpxCreator      = "gpx-analyzer"
	trackPointExtNS = "http://www.garmin.com/xmlschemas/TrackPointExtension/v1"
)

// WriteGPX renders the cleaned point stream as GPX 1.1. Smoothed elevation is
// written in place of the raw value when present, and sensor readings become
// TrackPointExtension nodes.
func WriteGPX(t *Track) ([]byte, error) {
	if t == nil || len(t.Points) == 0 {
		return nil, errNoPoints
	}

	seg := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, 0, len(t.Points))}
	for _, p := range t.Points {
		seg.Points = append(seg.Points, gpxPoint(p))
	}

	name := t.Title
	if name == "" {
		name = t.Name
	}
	doc := &gpx.GPX{
		Version: "1.1",
		Creator: gpxCreator,
		Tracks:  []gpx.GPXTrack{{Name: name, Segments: []gpx.GPXTrackSegment{seg}}},
	}
	out, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("render GPX: %w", err)
	}
	return out, nil
}

func gpxPoint(p Point) gpx.GPXPoint {
	var pt gpx.GPXPoint
	pt.Latitude = p.Lat
	pt.Longitude = p.Lon
	pt.Timestamp = p.Time
	switch {
	case p.SmoothedElevation != nil:
		pt.Elevation.SetValue(*p.SmoothedElevation)
	case p.Elevation != nil:
		pt.Elevation.SetValue(*p.Elevation)
	}

	var sensors []gpx.ExtensionNode
	for _, s := range []struct {
		tag   string
		value *float64
	}{
		{"hr", p.HeartRate},
		{"cad", p.Cadence},
		{"power", p.Power},
	} {
		if s.value == nil {
			continue
		}
		sensors = append(sensors, gpx.ExtensionNode{
			XMLName: xml.Name{Space: trackPointExtNS, Local: s.tag},
			Data:    strconv.FormatFloat(*s.value, 'f', -1, 64),
		})
	}
	if len(sensors) > 0 {
		pt.Extensions.Nodes = []gpx.ExtensionNode{{
			XMLName: xml.Name{Space: trackPointExtNS, Local: "TrackPointExtension"},
			Nodes:   sensors,
		}}
	}
	return pt
}
