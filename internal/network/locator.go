package network

import (
	"sort"

	"github.com/tidwall/rtree"
	"tripsearch.onebusaway.org/internal/utils"
)

// Locator answers nearest-stop queries over a fixed set of stops.
type Locator struct {
	tree   rtree.RTreeG[Stop]
	bounds utils.CoordinateBounds
	count  int
}

// NearbyStop is a stop together with its distance from the query point.
type NearbyStop struct {
	Stop           Stop
	DistanceMeters float64
}

// NewLocator indexes the stops in an R-tree keyed by (lon, lat).
func NewLocator(stops []Stop) *Locator {
	loc := &Locator{}
	for i, s := range stops {
		point := [2]float64{s.Location.Lon, s.Location.Lat}
		loc.tree.Insert(point, point, s)
		if i == 0 {
			loc.bounds = utils.CoordinateBounds{
				MinLat: s.Location.Lat, MaxLat: s.Location.Lat,
				MinLon: s.Location.Lon, MaxLon: s.Location.Lon,
			}
		} else {
			loc.bounds = loc.bounds.Extend(s.Location.Lat, s.Location.Lon)
		}
	}
	loc.count = len(stops)
	return loc
}

// Len returns the number of indexed stops.
func (loc *Locator) Len() int {
	return loc.count
}

// Bounds returns the bounding box of all indexed stops.
func (loc *Locator) Bounds() utils.CoordinateBounds {
	return loc.bounds
}

// Nearby returns the stops within radiusMeters of point, nearest first, at most
// maxCandidates of them. Equal distances are ordered by stop ID. An empty result
// is not an error.
func (loc *Locator) Nearby(point Coordinate, radiusMeters float64, maxCandidates int) []NearbyStop {
	if loc.count == 0 || radiusMeters < 0 || maxCandidates <= 0 {
		return []NearbyStop{}
	}

	box := utils.CalculateBounds(point.Lat, point.Lon, radiusMeters)
	wraps := box.MinLon < -180 || box.MaxLon > 180
	if !wraps && utils.IsOutOfBounds(box, loc.bounds) {
		return []NearbyStop{}
	}

	seen := make(map[string]bool)
	var found []NearbyStop
	collect := func(_, _ [2]float64, s Stop) bool {
		if seen[s.ID] {
			return true
		}
		seen[s.ID] = true
		d := point.DistanceTo(s.Location)
		if d <= radiusMeters {
			found = append(found, NearbyStop{Stop: s, DistanceMeters: d})
		}
		return true
	}

	loc.tree.Search([2]float64{box.MinLon, box.MinLat}, [2]float64{box.MaxLon, box.MaxLat}, collect)
	if box.MinLon < -180 {
		loc.tree.Search([2]float64{box.MinLon + 360, box.MinLat}, [2]float64{180, box.MaxLat}, collect)
	}
	if box.MaxLon > 180 {
		loc.tree.Search([2]float64{-180, box.MinLat}, [2]float64{box.MaxLon - 360, box.MaxLat}, collect)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].DistanceMeters != found[j].DistanceMeters {
			return found[i].DistanceMeters < found[j].DistanceMeters
		}
		return found[i].Stop.ID < found[j].Stop.ID
	})

	if len(found) > maxCandidates {
		found = found[:maxCandidates]
	}
	if found == nil {
		return []NearbyStop{}
	}
	return found
}
