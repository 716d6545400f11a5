// Package network holds the read-only model of a transit network: stops, lines
// and the lookup structures the trip planner derives from them.
package network

import (
	"fmt"

	"tripsearch.onebusaway.org/internal/utils"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate reports whether the coordinate lies within the valid latitude and
// longitude ranges. The planner itself never calls it; it trusts its inputs.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f out of range [-180, 180]", c.Lon)
	}
	return nil
}

// DistanceTo returns the haversine distance in meters.
func (c Coordinate) DistanceTo(other Coordinate) float64 {
	return utils.Distance(c.Lat, c.Lon, other.Lat, other.Lon)
}

// Stop is a boarding location.
type Stop struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Location   Coordinate `json:"location"`
	Accessible bool       `json:"accessible"`
}

// LineStop is one entry of a line's ordered stop list.
type LineStop struct {
	StopID   string `json:"stopId"`
	Sequence int    `json:"sequence"`
}

// Line is a transit line travelling in a single direction. Stops are ordered by
// strictly increasing Sequence.
type Line struct {
	ID         string     `json:"id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Accessible bool       `json:"accessible"`
	Stops      []LineStop `json:"stops"`
}

// DisplayName prefers the public code over the long name.
func (l Line) DisplayName() string {
	if l.Code != "" {
		return l.Code
	}
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}
