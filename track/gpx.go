package track

import (
	"errors"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime reads a GPX timestamp. Zone-less values are taken as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseGPX decodes a GPX document into a cleaned, time-ordered point stream.
// Points without finite coordinates or a readable timestamp are dropped.
func ParseGPX(name string, data []byte, agg CalorieAggregation) (*Track, error) {
	root, err := ParseElementTree(data)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	trkpts := root.Descendants("trkpt")
	points := make([]Point, 0, len(trkpts))
	invalid := 0
	for _, el := range trkpts {
		p, ok := readTrackPoint(el)
		if !ok {
			invalid++
			continue
		}
		points = append(points, p)
	}
	points, dupes := sortAndDedup(points)

	var calories []float64
	root.Walk(func(el *Element) bool {
		if CalorieTags.Has(el.Name.Local) {
			if v, ok := parseNumber(el.TextContent()); ok {
				calories = append(calories, v)
			}
		}
		return true
	})

	return &Track{
		Name:             name,
		Title:            trackTitle(root),
		Format:           FormatGPX,
		Points:           points,
		DeclaredCalories: agg.combine(calories),
		DroppedPoints:    invalid + dupes,
	}, nil
}

func readTrackPoint(el *Element) (Point, bool) {
	latText, ok := el.AttrValue("lat")
	if !ok {
		return Point{}, false
	}
	lonText, ok := el.AttrValue("lon")
	if !ok {
		return Point{}, false
	}
	lat, ok := parseNumber(latText)
	if !ok {
		return Point{}, false
	}
	lon, ok := parseNumber(lonText)
	if !ok {
		return Point{}, false
	}
	timeEl := el.Child("time")
	if timeEl == nil {
		return Point{}, false
	}
	ts, ok := ParseTime(timeEl.TextContent())
	if !ok {
		return Point{}, false
	}

	p := Point{Lat: lat, Lon: lon, Time: ts}
	if ele := el.Child("ele"); ele != nil {
		if v, ok := parseNumber(ele.TextContent()); ok {
			p.Elevation = floatPtr(v)
		}
	}
	if ext := el.Child("extensions"); ext != nil {
		if v, ok := FindSensorValue(ext, HeartRateTags); ok {
			p.HeartRate = floatPtr(v)
		}
		if v, ok := FindSensorValue(ext, CadenceTags); ok {
			p.Cadence = floatPtr(v)
		}
		if v, ok := FindSensorValue(ext, PowerTags); ok {
			p.Power = floatPtr(v)
		}
	}
	return p, true
}

func trackTitle(root *Element) string {
	for _, trk := range root.Descendants("trk") {
		for _, c := range trk.Children {
			if c.Is("name") {
				if n := strings.TrimSpace(c.TextContent()); n != "" {
					return n
				}
			}
		}
	}
	return ""
}

// errNoPoints is reported by writers that need at least one point.
var errNoPoints = errors.New("track has no points")
