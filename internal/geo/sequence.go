package geo

import (
	"math"
	"time"
)

// Segment is an ordered run of points without interruption.
type Segment struct {
	Points []Point `json:"points"`
}

// Sequence is the full geometry of one track: ordered segments plus free
// standing waypoints. Points inside a segment are expected to be ordered by
// time ascending; the caller must supply them in order, the Sequence never
// sorts.
type Sequence struct {
	Segments  []Segment `json:"segments"`
	Waypoints []Point   `json:"waypoints,omitempty"`
}

// AllPoints returns one flat list with all track points of all segments.
// Waypoints are not included.
func (s *Sequence) AllPoints() []Point {
	var result []Point
	for _, segment := range s.Segments {
		result = append(result, segment.Points...)
	}
	return result
}

// PointCount returns the number of track points over all segments.
func (s *Sequence) PointCount() int {
	count := 0
	for _, segment := range s.Segments {
		count += len(segment.Points)
	}
	return count
}

// FirstTime returns the time of the first point, or the zero time if there
// are no points or the first point has no time.
func (s *Sequence) FirstTime() time.Time {
	for _, segment := range s.Segments {
		if len(segment.Points) > 0 {
			return segment.Points[0].Time
		}
	}
	return time.Time{}
}

// LastTime returns the time of the last point, or the zero time.
func (s *Sequence) LastTime() time.Time {
	for i := len(s.Segments) - 1; i >= 0; i-- {
		points := s.Segments[i].Points
		if len(points) > 0 {
			return points[len(points)-1].Time
		}
	}
	return time.Time{}
}

// LastPoint returns the last track point. ok is false for an empty sequence.
func (s *Sequence) LastPoint() (Point, bool) {
	for i := len(s.Segments) - 1; i >= 0; i-- {
		points := s.Segments[i].Points
		if len(points) > 0 {
			return points[len(points)-1], true
		}
	}
	return Point{}, false
}

// Distance returns the summed great-circle length of all segments in km,
// rounded to meter precision.
func (s *Sequence) Distance() float64 {
	var meters float64
	for _, segment := range s.Segments {
		meters += PathLength(segment.Points)
	}
	return roundDigits(meters/1000, 3)
}

// Speed returns the average speed over the whole recorded time in km/h,
// or 0 if first or last point has no time.
func (s *Sequence) Speed() float64 {
	first, last := s.FirstTime(), s.LastTime()
	if first.IsZero() || last.IsZero() {
		return 0
	}
	seconds := last.Sub(first).Seconds()
	if seconds <= 0 {
		return 0
	}
	return s.Distance() / seconds * 3600
}

// MovingSpeed returns the average speed in km/h over the time actually in
// motion. Intervals slower than 1 km/h count as stopped.
func (s *Sequence) MovingSpeed() float64 {
	const stoppedSpeedKmh = 1.0
	var movingMeters, movingSeconds float64
	for _, segment := range s.Segments {
		for i := 1; i < len(segment.Points); i++ {
			prev, cur := segment.Points[i-1], segment.Points[i]
			if prev.Time.IsZero() || cur.Time.IsZero() {
				continue
			}
			seconds := cur.Time.Sub(prev.Time).Seconds()
			if seconds <= 0 {
				continue
			}
			meters := HaversineDistance(prev.Lat, prev.Lon, cur.Lat, cur.Lon)
			if meters/seconds*3.6 <= stoppedSpeedKmh {
				continue
			}
			movingMeters += meters
			movingSeconds += seconds
		}
	}
	if movingSeconds == 0 {
		return 0
	}
	return movingMeters / movingSeconds * 3.6
}

// Angle returns the angle in degrees 0..360 between start and end point.
// An empty sequence returns 0.
func (s *Sequence) Angle() float64 {
	points := s.AllPoints()
	if len(points) == 0 {
		return 0
	}
	first, last := points[0], points[len(points)-1]
	deltaLat := roundDigits(first.Lat, 6) - roundDigits(last.Lat, 6)
	deltaLon := roundDigits(first.Lon, 6) - roundDigits(last.Lon, 6)
	normLat := deltaLat / 90.0
	normLon := deltaLon / 180.0
	hypot := math.Sqrt(normLat*normLat + normLon*normLon)
	if hypot == 0 {
		return 0
	}
	result := math.Asin(normLon/hypot) * 180 / math.Pi
	if normLat >= 0 {
		return math.Mod(360+result, 360)
	}
	return 180 - result
}

// PointsEqual reports whether both sequences have the same positions,
// compared with the given number of decimal digits. Elevations and times
// are ignored.
func (s *Sequence) PointsEqual(other *Sequence, digits int) bool {
	if s.PointCount() != other.PointCount() {
		return false
	}
	relTol := 1 / math.Pow(10, float64(digits))
	a1, a2 := s.Angle(), other.Angle()
	if math.Abs(a1-a2) > relTol*math.Max(math.Abs(a1), math.Abs(a2)) && a1 != a2 {
		return false
	}
	mine, theirs := s.AllPoints(), other.AllPoints()
	for i := range mine {
		if !PositionsEqual(mine[i], theirs[i], digits) {
			return false
		}
	}
	return true
}

// Index checks if this sequence contains the points of other as one
// contiguous run and returns its starting offset. This only works if all
// positions are nearly identical, which is useful when one of the tracks
// had geofencing applied.
func (s *Sequence) Index(other *Sequence, digits int) (int, bool) {
	mine, theirs := s.AllPoints(), other.AllPoints()
	if len(theirs) == 0 {
		return 0, true
	}
outer:
	for start := 0; start <= len(mine)-len(theirs); start++ {
		for i, otherPoint := range theirs {
			if !PositionsEqual(mine[start+i], otherPoint, digits) {
				continue outer
			}
		}
		return start, true
	}
	return 0, false
}

// TimeOffset returns the time difference between both sequences if the
// first points and the last points have the same non-zero offset.
func (s *Sequence) TimeOffset(other *Sequence) (time.Duration, bool) {
	offset := func(a, b Point) (time.Duration, bool) {
		if a.Time.IsZero() || b.Time.IsZero() {
			return 0, false
		}
		return b.Time.Sub(a.Time), true
	}
	mine, theirs := s.AllPoints(), other.AllPoints()
	if len(mine) == 0 || len(theirs) == 0 {
		return 0, false
	}
	start, ok := offset(mine[0], theirs[0])
	if !ok || start == 0 {
		return 0, false
	}
	end, ok := offset(mine[len(mine)-1], theirs[len(theirs)-1])
	if !ok || start != end {
		return 0, false
	}
	return start, true
}

// Hash builds a float that is hopefully different for every possible
// combination of points.
func (s *Sequence) Hash() float64 {
	result := 1.0
	for _, point := range s.AllPoints() {
		if point.Lon != 0 {
			result *= point.Lon
		}
		if point.Lat != 0 {
			result *= point.Lat
		}
		if point.Ele != 0 {
			result *= point.Ele
		}
		if !point.Time.IsZero() {
			result *= float64(point.Time.Hour() + 1)
			result *= float64(point.Time.Minute() + 1)
			result *= float64(point.Time.Second() + 1)
		}
		result = math.Mod(result, 1e20)
	}
	return result
}

// AddPoints appends points to the last segment, allocating a first segment
// if none exists yet. Points are rounded on the way in.
func (s *Sequence) AddPoints(points []Point) {
	if len(points) == 0 {
		return
	}
	RoundPoints(points)
	if len(s.Segments) == 0 {
		s.Segments = append(s.Segments, Segment{})
	}
	last := &s.Segments[len(s.Segments)-1]
	last.Points = append(last.Points, points...)
}

// AdjustTime shifts all point and waypoint times by delta. Points without
// a time are left alone.
func (s *Sequence) AdjustTime(delta time.Duration) {
	shift := func(points []Point) {
		for i := range points {
			if !points[i].Time.IsZero() {
				points[i].Time = points[i].Time.Add(delta)
			}
		}
	}
	for i := range s.Segments {
		shift(s.Segments[i].Points)
	}
	shift(s.Waypoints)
}

// Clone returns a deep copy sharing no mutable state.
func (s *Sequence) Clone() *Sequence {
	result := &Sequence{}
	for _, segment := range s.Segments {
		points := make([]Point, len(segment.Points))
		copy(points, segment.Points)
		result.Segments = append(result.Segments, Segment{Points: points})
	}
	if len(s.Waypoints) > 0 {
		result.Waypoints = make([]Point, len(s.Waypoints))
		copy(result.Waypoints, s.Waypoints)
	}
	return result
}
