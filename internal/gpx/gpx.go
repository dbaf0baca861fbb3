// Package gpx reads and writes GPX 1.1 documents. Only the parts used by
// the track core are mapped: metadata name/desc/keywords, track segments
// with their points, and waypoints.
package gpx

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/wrohdewald/gpxity/internal/geo"
)

// Creator is written into the creator attribute of produced documents.
const Creator = "gpxity"

// Document is the parsed content of one GPX file.
type Document struct {
	Name        string
	Description string
	Keywords    string
	Sequence    geo.Sequence
}

type xmlGpx struct {
	XMLName  xml.Name     `xml:"gpx"`
	Version  string       `xml:"version,attr"`
	Creator  string       `xml:"creator,attr"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	Metadata *xmlMetadata `xml:"metadata,omitempty"`
	Wpt      []xmlPoint   `xml:"wpt"`
	Trk      []xmlTrack   `xml:"trk"`
}

type xmlMetadata struct {
	Name     string `xml:"name,omitempty"`
	Desc     string `xml:"desc,omitempty"`
	Keywords string `xml:"keywords,omitempty"`
}

type xmlTrack struct {
	Name string       `xml:"name,omitempty"`
	Desc string       `xml:"desc,omitempty"`
	Seg  []xmlSegment `xml:"trkseg"`
}

type xmlSegment struct {
	Points []xmlPoint `xml:"trkpt"`
}

type xmlPoint struct {
	Lat  float64 `xml:"lat,attr"`
	Lon  float64 `xml:"lon,attr"`
	Ele  float64 `xml:"ele,omitempty"`
	Time string  `xml:"time,omitempty"`
}

func toXMLPoint(p geo.Point) xmlPoint {
	result := xmlPoint{Lat: p.Lat, Lon: p.Lon, Ele: p.Ele}
	if !p.Time.IsZero() {
		result.Time = p.Time.UTC().Format(time.RFC3339)
	}
	return result
}

func fromXMLPoint(p xmlPoint) (geo.Point, error) {
	result := geo.Point{Lat: p.Lat, Lon: p.Lon, Ele: p.Ele}
	if p.Time != "" {
		parsed, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			return geo.Point{}, fmt.Errorf("illegal point time %q: %w", p.Time, err)
		}
		result.Time = parsed.UTC()
	}
	return result.Round(), nil
}

// Marshal produces the GPX document with exactly one line per trackpoint
// for easier manual editing, like removal of unwanted points.
func Marshal(doc *Document) ([]byte, error) {
	out := xmlGpx{
		Version: "1.1",
		Creator: Creator,
		Xmlns:   "http://www.topografix.com/GPX/1/1",
	}
	if doc.Name != "" || doc.Description != "" || doc.Keywords != "" {
		out.Metadata = &xmlMetadata{Name: doc.Name, Desc: doc.Description, Keywords: doc.Keywords}
	}
	for _, wpt := range doc.Sequence.Waypoints {
		out.Wpt = append(out.Wpt, toXMLPoint(wpt))
	}
	track := xmlTrack{Name: doc.Name, Desc: doc.Description}
	for _, segment := range doc.Sequence.Segments {
		seg := xmlSegment{}
		for _, point := range segment.Points {
			seg.Points = append(seg.Points, toXMLPoint(point))
		}
		track.Seg = append(track.Seg, seg)
	}
	if len(track.Seg) > 0 {
		out.Trk = append(out.Trk, track)
	}
	raw, err := xml.Marshal(out)
	if err != nil {
		return nil, err
	}
	return []byte(xml.Header + lineBreaks(string(raw)) + "\n"), nil
}

// lineBreaks makes the single-line output of xml.Marshal readable: one line
// per structural element and per point.
func lineBreaks(raw string) string {
	for _, tag := range []string{
		"<metadata>", "<wpt ", "<trk>", "<trkseg>", "<trkpt ",
		"</trkseg>", "</trk>", "</gpx>",
	} {
		raw = strings.ReplaceAll(raw, tag, "\n"+tag)
	}
	return raw
}

// Parse reads a GPX document. Points are rounded to 6 decimal digits on the
// way in. Track name, description and keywords are taken from metadata,
// falling back to the first track for documents written by other tools.
func Parse(data []byte) (*Document, error) {
	var in xmlGpx
	if err := xml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}
	result := &Document{}
	if in.Metadata != nil {
		result.Name = in.Metadata.Name
		result.Description = in.Metadata.Desc
		result.Keywords = in.Metadata.Keywords
	}
	for _, wpt := range in.Wpt {
		point, err := fromXMLPoint(wpt)
		if err != nil {
			return nil, err
		}
		result.Sequence.Waypoints = append(result.Sequence.Waypoints, point)
	}
	for _, track := range in.Trk {
		if result.Name == "" {
			result.Name = track.Name
		}
		if result.Description == "" {
			result.Description = track.Desc
		}
		for _, seg := range track.Seg {
			segment := geo.Segment{}
			for _, pt := range seg.Points {
				point, err := fromXMLPoint(pt)
				if err != nil {
					return nil, err
				}
				segment.Points = append(segment.Points, point)
			}
			result.Sequence.Segments = append(result.Sequence.Segments, segment)
		}
	}
	return result, nil
}
