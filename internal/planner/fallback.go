package planner

import (
	"fmt"
)

const (
	walkOnlyShortScore = 8.0
	walkOnlyLongScore  = 6.0
)

// Fallback reasons reported in Result.FallbackReason.
const (
	FallbackNoNearbyService   = "no_nearby_service"
	FallbackNoConnectionFound = "no_connection_found"
)

// fallback answers a search that produced no transit itinerary: a walk when the
// endpoints are close enough, otherwise an Unavailable itinerary carrying the
// straight-line distance.
func (p *Planner) fallback(origin, destination Endpoint) Itinerary {
	distance := origin.Location.DistanceTo(destination.Location)
	bounds := p.config.Bounds

	if distance <= bounds.WalkOnlyMaxMeters {
		builder := NewBuilder(p.config.Speed, nil)
		it := Itinerary{
			Kind: KindWalkOnly,
			Legs: []Leg{builder.BuildWalk(origin, destination)},
		}
		it.finalize()
		it.QualityScore = walkOnlyLongScore
		if distance <= bounds.WalkOnlyShortMeters {
			it.QualityScore = walkOnlyShortScore
		}
		it.IsRecommended = true
		it.Tags = []string{TagRecommended, TagFastest, TagCheapest, TagNoTransfer}
		it.Comparison = Comparison{IsFastest: true, IsCheapest: true}
		it.Message = fmt.Sprintf("No transit connection needed: walk %.0f m", distance)
		return it
	}

	it := Itinerary{Kind: KindUnavailable}
	it.finalize()
	it.TotalDistanceKm = distance / 1000
	it.ID = itineraryID(string(KindUnavailable),
		fmt.Sprintf("%.6f,%.6f", origin.Location.Lat, origin.Location.Lon),
		fmt.Sprintf("%.6f,%.6f", destination.Location.Lat, destination.Location.Lon))
	it.Message = fmt.Sprintf("No transit service connects these locations (straight-line distance %.1f km)", distance/1000)
	return it
}
