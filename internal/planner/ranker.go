package planner

import (
	"math"
	"sort"
)

const (
	maxQualityScore = 10.0

	longTripMinutes        = 60
	longTripPenaltyPerMin  = 0.05
	longWalkMeters         = 500
	longWalkPenaltyPerM    = 0.002
	transferPenaltyPerStep = 1.5
)

// Score rates an itinerary between 0 and 10. Long trips, long walks and transfers
// lower the score.
func Score(it *Itinerary) float64 {
	score := maxQualityScore

	if it.TotalMinutes > longTripMinutes {
		score -= float64(it.TotalMinutes-longTripMinutes) * longTripPenaltyPerMin
	}
	if walk := it.WalkDistanceMeters(); walk > longWalkMeters {
		score -= (walk - longWalkMeters) * longWalkPenaltyPerM
	}
	score -= float64(it.TransferCount) * transferPenaltyPerStep

	return math.Min(maxQualityScore, math.Max(0, score))
}

// RankAndTag removes duplicate itineraries (same lines in the same order, first one
// kept), scores and sorts the rest best first, keeps at most limit of them (all
// when limit <= 0), marks the first as recommended and annotates every itinerary
// relative to the fastest and cheapest of the kept set.
func RankAndTag(itineraries []Itinerary, limit int) []Itinerary {
	seen := make(map[string]bool, len(itineraries))
	ranked := make([]Itinerary, 0, len(itineraries))
	for _, it := range itineraries {
		sig := it.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		it.QualityScore = Score(&it)
		it.IsRecommended = false
		it.Tags = nil
		it.Comparison = Comparison{}
		ranked = append(ranked, it)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].QualityScore != ranked[j].QualityScore {
			return ranked[i].QualityScore > ranked[j].QualityScore
		}
		return ranked[i].TotalMinutes < ranked[j].TotalMinutes
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		return ranked
	}

	ranked[0].IsRecommended = true

	fastest, cheapest := ranked[0].TotalMinutes, ranked[0].TotalFareAmount
	for _, it := range ranked[1:] {
		fastest = min(fastest, it.TotalMinutes)
		cheapest = math.Min(cheapest, it.TotalFareAmount)
	}

	for i := range ranked {
		it := &ranked[i]
		it.Comparison = Comparison{
			IsFastest:               it.TotalMinutes == fastest,
			IsCheapest:              it.TotalFareAmount == cheapest,
			DeltaMinutesFromFastest: it.TotalMinutes - fastest,
			DeltaFareFromCheapest:   roundCents(it.TotalFareAmount - cheapest),
		}

		if it.IsRecommended {
			it.Tags = append(it.Tags, TagRecommended)
		}
		if it.Comparison.IsFastest {
			it.Tags = append(it.Tags, TagFastest)
		}
		if it.Comparison.IsCheapest {
			it.Tags = append(it.Tags, TagCheapest)
		}
		if it.TransferCount == 0 {
			it.Tags = append(it.Tags, TagNoTransfer)
		}
	}

	return ranked
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
