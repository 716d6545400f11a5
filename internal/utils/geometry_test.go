package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same point",
			lat1:      -33.4489,
			lon1:      -70.6693,
			lat2:      -33.4489,
			lon2:      -70.6693,
			expected:  0,
			tolerance: 0,
		},
		{
			name:      "Santiago to Valparaiso",
			lat1:      -33.4489,
			lon1:      -70.6693,
			lat2:      -33.0472,
			lon2:      -71.6127,
			expected:  98000,
			tolerance: 2000,
		},
		{
			name:      "Quarter of the equator",
			lat1:      0,
			lon1:      0,
			lat2:      0,
			lon2:      90,
			expected:  math.Pi / 2 * RadiusOfEarthInMeters,
			tolerance: 0.001,
		},
		{
			name:      "Pole to equator",
			lat1:      90,
			lon1:      0,
			lat2:      0,
			lon2:      0,
			expected:  math.Pi / 2 * RadiusOfEarthInMeters,
			tolerance: 0.001,
		},
		{
			name:      "Antipodal points",
			lat1:      40,
			lon1:      0,
			lat2:      -40,
			lon2:      180,
			expected:  math.Pi * RadiusOfEarthInMeters,
			tolerance: 1,
		},
		{
			name:      "Neighbouring stops",
			lat1:      40.7128,
			lon1:      -74.0060,
			lat2:      40.7129,
			lon2:      -74.0061,
			expected:  13.5,
			tolerance: 1.0,
		},
		{
			name:      "One hundredth of a degree of latitude",
			lat1:      10,
			lon1:      20,
			lat2:      10.01,
			lon2:      20,
			expected:  1111.95,
			tolerance: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, result, tt.tolerance)
		})
	}
}

func TestDistance_Symmetry(t *testing.T) {
	points := [][2]float64{
		{40.7128, -74.0060},
		{34.0522, -118.2437},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{0, 0},
		{89.9, 179.9},
	}

	for _, a := range points {
		for _, b := range points {
			ab := Distance(a[0], a[1], b[0], b[1])
			ba := Distance(b[0], b[1], a[0], a[1])
			assert.Equal(t, ab, ba, "distance must be symmetric for %v and %v", a, b)
		}
		assert.Equal(t, 0.0, Distance(a[0], a[1], a[0], a[1]))
	}
}

func TestDistance_OutputRange(t *testing.T) {
	tests := []struct {
		lat1, lon1, lat2, lon2 float64
	}{
		{0, 0, 0, 0},
		{90, 0, -90, 0},
		{45, 45, -45, -135},
		{-90, 180, 90, -180},
	}

	for _, tt := range tests {
		result := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
		assert.False(t, math.IsNaN(result))
		assert.GreaterOrEqual(t, result, 0.0)
		assert.LessOrEqual(t, result, math.Pi*RadiusOfEarthInMeters+1e-6)
	}
}

func TestCalculateBounds(t *testing.T) {
	lat := 38.627003
	lon := -121.530398
	radius := 500.0

	bounds := CalculateBounds(lat, lon, radius)

	assert.InDelta(t, 0.00898, bounds.MaxLat-bounds.MinLat, 0.00898*0.01)
	assert.InDelta(t, 0.01153, bounds.MaxLon-bounds.MinLon, 0.01153*0.01)

	// every point at exactly radius along the axes must fall inside the box
	north := lat + radius/RadiusOfEarthInMeters*180/math.Pi
	assert.InDelta(t, radius, Distance(lat, lon, north, lon), 0.01)
	assert.LessOrEqual(t, north, bounds.MaxLat+1e-9)
}

func TestCalculateBounds_NearPole(t *testing.T) {
	bounds := CalculateBounds(89.9999, 0, 1000)

	assert.InDelta(t, -180, bounds.MinLon, 1e-9)
	assert.InDelta(t, 180, bounds.MaxLon, 1e-9)
}

func TestCoordinateBounds_Extend(t *testing.T) {
	b := CoordinateBounds{MinLat: 1, MaxLat: 1, MinLon: 2, MaxLon: 2}

	b = b.Extend(3, -1)
	b = b.Extend(0, 5)

	assert.Equal(t, CoordinateBounds{MinLat: 0, MaxLat: 3, MinLon: -1, MaxLon: 5}, b)
}

func TestIsOutOfBounds(t *testing.T) {
	outer := CoordinateBounds{MinLat: 0, MaxLat: 3, MinLon: 0, MaxLon: 3}

	tests := []struct {
		name     string
		inner    CoordinateBounds
		expected bool
	}{
		{"Inner fully inside outer", CoordinateBounds{MinLat: 1, MaxLat: 2, MinLon: 1, MaxLon: 2}, false},
		{"Inner completely north of outer", CoordinateBounds{MinLat: 5, MaxLat: 6, MinLon: 1, MaxLon: 2}, true},
		{"Inner completely south of outer", CoordinateBounds{MinLat: -6, MaxLat: -5, MinLon: 1, MaxLon: 2}, true},
		{"Inner completely east of outer", CoordinateBounds{MinLat: 1, MaxLat: 2, MinLon: 5, MaxLon: 6}, true},
		{"Inner completely west of outer", CoordinateBounds{MinLat: 1, MaxLat: 2, MinLon: -6, MaxLon: -5}, true},
		{"Partial overlap", CoordinateBounds{MinLat: 2, MaxLat: 5, MinLon: 2, MaxLon: 5}, false},
		{"Touching boundary exactly", CoordinateBounds{MinLat: 3, MaxLat: 4, MinLon: 1, MaxLon: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsOutOfBounds(tt.inner, outer))
		})
	}
}
