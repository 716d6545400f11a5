package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	testCases := []struct {
		name     string
		it       Itinerary
		expected float64
	}{
		{"short direct trip", Itinerary{TotalMinutes: 25}, 10},
		{"exactly one hour", Itinerary{TotalMinutes: 60}, 10},
		{"long trip", Itinerary{TotalMinutes: 80}, 9},
		{"long walk", Itinerary{TotalMinutes: 30, Legs: []Leg{&WalkLeg{Distance: 1000}}}, 9},
		{"one transfer", Itinerary{TotalMinutes: 30, TransferCount: 1}, 8.5},
		{"all penalties", Itinerary{TotalMinutes: 100, TransferCount: 1, Legs: []Leg{&WalkLeg{Distance: 750}}}, 10 - 2 - 0.5 - 1.5},
		{"clamped at zero", Itinerary{TotalMinutes: 600, TransferCount: 3}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, Score(&tc.it), 1e-9)
		})
	}
}

func TestRankAndTagDeduplicatesKeepingFirst(t *testing.T) {
	ranked := RankAndTag([]Itinerary{
		syntheticItinerary(30, 4.5, "L1"),
		syntheticItinerary(20, 4.5, "L1"),
		syntheticItinerary(25, 4.5, "L2"),
	}, 0)

	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"L2"}, ranked[0].LineIDs())
	assert.Equal(t, []string{"L1"}, ranked[1].LineIDs())
	assert.Equal(t, 30, ranked[1].TotalMinutes)
}

func TestRankAndTagOrderAndTags(t *testing.T) {
	transfer := syntheticItinerary(20, 9.0, "L1", "L2")
	direct := syntheticItinerary(40, 4.5, "L3")

	ranked := RankAndTag([]Itinerary{transfer, direct}, 5)
	require.Len(t, ranked, 2)

	best := ranked[0]
	assert.Equal(t, []string{"L3"}, best.LineIDs())
	assert.True(t, best.IsRecommended)
	assert.Equal(t, 10.0, best.QualityScore)
	assert.Equal(t, []string{TagRecommended, TagCheapest, TagNoTransfer}, best.Tags)
	assert.Equal(t, Comparison{IsCheapest: true, DeltaMinutesFromFastest: 20}, best.Comparison)

	second := ranked[1]
	assert.False(t, second.IsRecommended)
	assert.Equal(t, 8.5, second.QualityScore)
	assert.Equal(t, []string{TagFastest}, second.Tags)
	assert.Equal(t, Comparison{IsFastest: true, DeltaFareFromCheapest: 4.5}, second.Comparison)
}

func TestRankAndTagBreaksScoreTiesByMinutes(t *testing.T) {
	ranked := RankAndTag([]Itinerary{
		syntheticItinerary(35, 4.5, "L1"),
		syntheticItinerary(22, 4.5, "L2"),
		syntheticItinerary(28, 4.5, "L3"),
	}, 0)

	var order []string
	for _, it := range ranked {
		order = append(order, it.LineIDs()[0])
	}
	assert.Equal(t, []string{"L2", "L3", "L1"}, order)
}

func TestRankAndTagTruncatesBeforeTagging(t *testing.T) {
	ranked := RankAndTag([]Itinerary{
		syntheticItinerary(20, 4.5, "L1"),
		syntheticItinerary(25, 4.5, "L2"),
		syntheticItinerary(30, 1.0, "L3"),
	}, 2)

	require.Len(t, ranked, 2)
	for _, it := range ranked {
		assert.True(t, it.Comparison.IsCheapest, "cheapest is relative to the returned set")
	}
}

func TestRankAndTagExactlyOneRecommended(t *testing.T) {
	var input []Itinerary
	for i, id := range []string{"A", "B", "C", "D", "E", "F"} {
		input = append(input, syntheticItinerary(20+i*15, 4.5, id))
	}
	input = append(input, syntheticItinerary(15, 9, "A", "B"))

	ranked := RankAndTag(input, 0)

	recommended := 0
	for _, it := range ranked {
		assert.GreaterOrEqual(t, it.QualityScore, 0.0)
		assert.LessOrEqual(t, it.QualityScore, 10.0)
		if it.IsRecommended {
			recommended++
		}
		assert.LessOrEqual(t, it.QualityScore, ranked[0].QualityScore)
	}
	assert.Equal(t, 1, recommended)
	assert.True(t, ranked[0].IsRecommended)
}

func TestRankAndTagIsIdempotent(t *testing.T) {
	input := []Itinerary{
		syntheticItinerary(20, 9.0, "L1", "L2"),
		syntheticItinerary(40, 4.5, "L3"),
	}

	once := RankAndTag(input, 5)
	twice := RankAndTag(once, 5)
	assert.Equal(t, once, twice)
}

func TestRankAndTagEmpty(t *testing.T) {
	assert.Empty(t, RankAndTag(nil, 5))
}
