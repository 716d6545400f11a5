package planner

import (
	"sort"

	"tripsearch.onebusaway.org/internal/network"
)

// TransferRank orders transfer candidates; lower is better.
type TransferRank func(network.Stop) float64

// CandidateTransferStops returns stops served by at least one of originLines and at
// least one of destLines, skipping the stops in excluding, at most limit of them.
//
// Candidates are ordered by rank when one is given and by stop ID otherwise, so the
// result is the same for identical inputs.
func CandidateTransferStops(
	originLines, destLines []network.Line,
	idx *network.Index,
	excluding map[string]struct{},
	limit int,
	rank TransferRank,
) []network.Stop {
	if limit <= 0 || len(originLines) == 0 || len(destLines) == 0 {
		return nil
	}

	onDestLine := make(map[string]bool)
	for _, line := range destLines {
		for _, stopID := range idx.StopsOn(line.ID) {
			onDestLine[stopID] = true
		}
	}

	seen := make(map[string]bool)
	var candidates []network.Stop
	for _, line := range originLines {
		for _, stopID := range idx.StopsOn(line.ID) {
			if seen[stopID] || !onDestLine[stopID] {
				continue
			}
			seen[stopID] = true
			if _, skip := excluding[stopID]; skip {
				continue
			}
			if stop, ok := idx.Stop(stopID); ok {
				candidates = append(candidates, stop)
			}
		}
	}

	keys := make(map[string]float64, len(candidates))
	if rank != nil {
		for _, c := range candidates {
			keys[c.ID] = rank(c)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ki, kj := keys[candidates[i].ID], keys[candidates[j].ID]
		if ki != kj {
			return ki < kj
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// unreachablePenalty pushes candidates that cannot be used in travel order behind
// every usable one without removing them.
const unreachablePenalty = 1e9

// detourRank prefers transfer stops that can be reached from board and that reach
// alight in line order, then the shortest board → transfer → alight detour.
func detourRank(board, alight network.Stop, idx *network.Index) TransferRank {
	return func(s network.Stop) float64 {
		detour := board.Location.DistanceTo(s.Location) + s.Location.DistanceTo(alight.Location)
		if len(LinesConnecting(board, s, idx)) == 0 || len(LinesConnecting(s, alight, idx)) == 0 {
			detour += unreachablePenalty
		}
		return detour
	}
}
