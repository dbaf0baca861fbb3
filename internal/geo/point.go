package geo

import (
	"math"
	"time"
)

// Point is a single timestamped position. Ele is meters above sea level,
// zero if unknown. A zero Time means the point carries no timestamp.
type Point struct {
	Lat  float64   `json:"latitude"`
	Lon  float64   `json:"longitude"`
	Ele  float64   `json:"elevation,omitempty"`
	Time time.Time `json:"time,omitempty"`
}

// Round returns the point with latitude and longitude rounded to 6 decimal
// digits. Some storage services cut the last digits, so the core rounds
// everything on ingestion.
func (p Point) Round() Point {
	p.Lat = roundDigits(p.Lat, 6)
	p.Lon = roundDigits(p.Lon, 6)
	return p
}

// PositionsEqual compares only latitude and longitude, rounded to the given
// number of decimal digits. Elevation and time are ignored.
func PositionsEqual(a, b Point, digits int) bool {
	return roundDigits(a.Lat, digits) == roundDigits(b.Lat, digits) &&
		roundDigits(a.Lon, digits) == roundDigits(b.Lon, digits)
}

// RoundPoints rounds all points in place, see Point.Round.
func RoundPoints(points []Point) {
	for i := range points {
		points[i] = points[i].Round()
	}
}

func roundDigits(value float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(value*factor) / factor
}
