package geo

import "math"

// Simplify reduces points to a polyline where no removed point was further
// away than maxDistance meters from the simplified line
// (Ramer-Douglas-Peucker).
func Simplify(points []Point, maxDistance float64) []Point {
	if len(points) < 3 {
		result := make([]Point, len(points))
		copy(result, points)
		return result
	}
	keep := make([]bool, len(points))
	keep[0], keep[len(points)-1] = true, true
	simplifyRange(points, 0, len(points)-1, maxDistance, keep)
	var result []Point
	for i, point := range points {
		if keep[i] {
			result = append(result, point)
		}
	}
	return result
}

func simplifyRange(points []Point, first, last int, maxDistance float64, keep []bool) {
	if last <= first+1 {
		return
	}
	maxDist := -1.0
	maxIdx := -1
	for i := first + 1; i < last; i++ {
		dist := distanceFromLine(points[i], points[first], points[last])
		if dist > maxDist {
			maxDist = dist
			maxIdx = i
		}
	}
	if maxDist <= maxDistance {
		return
	}
	keep[maxIdx] = true
	simplifyRange(points, first, maxIdx, maxDistance, keep)
	simplifyRange(points, maxIdx, last, maxDistance, keep)
}

// distanceFromLine returns the distance in meters of p from the line
// through a and b, using the triangle height over the base a-b.
func distanceFromLine(p, a, b Point) float64 {
	base := HaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
	if base == 0 {
		return HaversineDistance(p.Lat, p.Lon, a.Lat, a.Lon)
	}
	da := HaversineDistance(p.Lat, p.Lon, a.Lat, a.Lon)
	db := HaversineDistance(p.Lat, p.Lon, b.Lat, b.Lon)
	// Heron's formula for the triangle area, height = 2*area/base.
	// Rounding can push the product a hair below zero when p lies on
	// the line, which means zero deviation.
	s := (base + da + db) / 2
	area2 := s * (s - base) * (s - da) * (s - db)
	if area2 <= 0 {
		return 0
	}
	return 2 * math.Sqrt(area2) / base
}
