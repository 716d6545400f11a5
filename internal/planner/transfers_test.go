package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"tripsearch.onebusaway.org/internal/network"
)

func TestCandidateTransferStops(t *testing.T) {
	idx := mustIndex(transferNetwork())
	l1, _ := idx.Line("L1")
	l2, _ := idx.Line("L2")
	exclude := map[string]struct{}{"O1": {}, "D1": {}}

	got := CandidateTransferStops([]network.Line{l1}, []network.Line{l2}, idx, exclude, 5, nil)
	assert.Equal(t, []string{"M"}, stopIDs(got))

	exclude["M"] = struct{}{}
	got = CandidateTransferStops([]network.Line{l1}, []network.Line{l2}, idx, exclude, 5, nil)
	assert.Empty(t, got)
}

func TestCandidateTransferStopsOrderingAndLimit(t *testing.T) {
	stops := []network.Stop{
		stopAt("O1", 0, 0),
		stopAt("A", 0, 0.01),
		stopAt("B", 0, 0.02),
		stopAt("C", 0, 0.03),
		stopAt("D1", 0, 0.04),
	}
	lines := []network.Line{
		lineThrough("L1", "O1", "C", "A", "B"),
		lineThrough("L2", "B", "A", "C", "D1"),
	}
	idx := mustIndex(stops, lines)
	l1, _ := idx.Line("L1")
	l2, _ := idx.Line("L2")
	lineSet := func(l network.Line) []network.Line { return []network.Line{l} }

	byID := CandidateTransferStops(lineSet(l1), lineSet(l2), idx, nil, 2, nil)
	assert.Equal(t, []string{"A", "B"}, stopIDs(byID))

	eastFirst := func(s network.Stop) float64 { return -s.Location.Lon }
	ranked := CandidateTransferStops(lineSet(l1), lineSet(l2), idx, nil, 3, eastFirst)
	assert.Equal(t, []string{"C", "B", "A"}, stopIDs(ranked))

	assert.Empty(t, CandidateTransferStops(lineSet(l1), lineSet(l2), idx, nil, 0, nil))
	assert.Empty(t, CandidateTransferStops(nil, lineSet(l2), idx, nil, 5, nil))
}

func TestDetourRankPenalisesUnusableStops(t *testing.T) {
	stops := []network.Stop{
		stopAt("O1", 0, 0),
		stopAt("A", 0, 0.01),
		stopAt("B", 0, 0.02),
		stopAt("D1", 0, 0.04),
	}
	lines := []network.Line{
		lineThrough("L1", "O1", "A", "B"),
		// L2 passes A after D1, so A cannot be used to reach D1
		lineThrough("L2", "B", "D1", "A"),
	}
	idx := mustIndex(stops, lines)
	o1, _ := idx.Stop("O1")
	d1, _ := idx.Stop("D1")
	a, _ := idx.Stop("A")
	b, _ := idx.Stop("B")

	rank := detourRank(o1, d1, idx)
	assert.Less(t, rank(b), unreachablePenalty)
	assert.GreaterOrEqual(t, rank(a), unreachablePenalty)

	l1, _ := idx.Line("L1")
	l2, _ := idx.Line("L2")
	got := CandidateTransferStops([]network.Line{l1}, []network.Line{l2}, idx, nil, 5, rank)
	assert.Equal(t, []string{"B", "A"}, stopIDs(got))
}
