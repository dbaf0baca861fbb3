package track

import (
	"math"

	"github.com/wrohdewald/gpxity/internal/geo"
)

// simplifyMaxDistance is the threshold in meters for reducing a track to
// its rough shape before comparing.
const simplifyMaxDistance = 50

// simplified reduces the geometry to a coarse polyline: distance based
// simplification, positions rounded to 3 decimal digits.
func simplified(seq *geo.Sequence) []geo.Point {
	points := geo.Simplify(seq.AllPoints(), simplifyMaxDistance)
	for i := range points {
		points[i].Lat = math.Round(points[i].Lat*1000) / 1000
		points[i].Lon = math.Round(points[i].Lon*1000) / 1000
	}
	return points
}

// Similarity returns a likeness score 0..1 where 1 is identity. The score
// is cached symmetrically on both tracks until either geometry changes.
func (t *Track) Similarity(other *Track) (float64, error) {
	if cached, ok := t.similarities[other]; ok {
		return cached, nil
	}
	mySeq, err := t.Sequence()
	if err != nil {
		return 0, err
	}
	otherSeq, err := other.Sequence()
	if err != nil {
		return 0, err
	}
	simple1 := simplified(mySeq)
	simple2 := simplified(otherSeq)
	maxLen := float64(max(len(simple1), len(simple2)))
	if maxLen == 0 {
		return 0, nil
	}
	similarLength := 1.0 - math.Abs(float64(len(simple1)-len(simple2)))/maxLen
	set1 := positionSet(simple1)
	set2 := positionSet(simple2)
	minLen := min(len(set1), len(set2))
	if minLen == 0 {
		return 0, nil
	}
	common := 0
	for position := range set1 {
		if set2[position] {
			common++
		}
	}
	result := similarLength * float64(common) / float64(minLen)
	t.similarities[other] = result
	other.similarities[t] = result
	return result, nil
}

// invalidateSimilarity drops all cached scores involving this track, on
// both sides of each cached pair.
func (t *Track) invalidateSimilarity() {
	for other := range t.similarities {
		delete(other.similarities, t)
	}
	t.similarities = make(map[*Track]float64)
}

type position struct {
	lat, lon float64
}

func positionSet(points []geo.Point) map[position]bool {
	result := make(map[position]bool, len(points))
	for _, point := range points {
		result[position{lat: point.Lat, lon: point.Lon}] = true
	}
	return result
}
