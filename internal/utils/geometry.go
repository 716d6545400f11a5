package utils

import "math"

const (
	// RadiusOfEarthInMeters is the mean Earth radius used by the haversine formula.
	RadiusOfEarthInMeters = 6371000.0
)

// CoordinateBounds represents a bounding box with min/max latitude and longitude
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Distance returns the great-circle distance in meters between two points using the
// haversine formula. The result is symmetric and exactly zero for identical points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * (math.Pi / 180)
	lat2Rad := lat2 * (math.Pi / 180)
	dLatRad := (lat2 - lat1) * (math.Pi / 180)
	dLonRad := (lon2 - lon1) * (math.Pi / 180)

	sinLat := math.Sin(dLatRad / 2)
	sinLon := math.Sin(dLonRad / 2)

	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon
	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	return 2 * RadiusOfEarthInMeters * math.Asin(math.Sqrt(a))
}

// CalculateBounds returns the box that contains every point within distance meters of
// (lat, lon). Longitudes are not wrapped at the antimeridian.
func CalculateBounds(lat, lon, distance float64) CoordinateBounds {
	latRadians := lat * math.Pi / 180
	lonRadians := lon * math.Pi / 180

	latRadius := RadiusOfEarthInMeters
	lonRadius := math.Cos(latRadians) * RadiusOfEarthInMeters

	latOffset := distance / latRadius
	// near the poles every longitude is within reach
	lonOffset := math.Pi
	if lonRadius > distance {
		lonOffset = distance / lonRadius
	}

	minLat := (latRadians - latOffset) * 180 / math.Pi
	maxLat := (latRadians + latOffset) * 180 / math.Pi
	minLon := (lonRadians - lonOffset) * 180 / math.Pi
	maxLon := (lonRadians + lonOffset) * 180 / math.Pi

	return CoordinateBounds{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}
}

// Extend grows the bounds so that they contain the point.
func (b CoordinateBounds) Extend(lat, lon float64) CoordinateBounds {
	return CoordinateBounds{
		MinLat: math.Min(b.MinLat, lat),
		MaxLat: math.Max(b.MaxLat, lat),
		MinLon: math.Min(b.MinLon, lon),
		MaxLon: math.Max(b.MaxLon, lon),
	}
}

// IsOutOfBounds returns true only if the inner bounds have no overlap
// with the outer bounds.
func IsOutOfBounds(inner, outer CoordinateBounds) bool {
	return inner.MaxLat < outer.MinLat ||
		inner.MinLat > outer.MaxLat ||
		inner.MaxLon < outer.MinLon ||
		inner.MinLon > outer.MaxLon
}
