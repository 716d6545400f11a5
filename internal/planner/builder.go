package planner

import (
	"errors"
	"fmt"
	"math"

	"tripsearch.onebusaway.org/internal/network"
)

// ErrSequenceOrder is returned when a builder is asked to ride a line against its
// direction of travel. Callers only pass lines from LinesConnecting, so seeing it
// means a bug, not bad user input.
var ErrSequenceOrder = errors.New("line does not visit board stop before alight stop")

// Builder assembles itineraries from chosen stops and lines. It has no state
// beyond its inputs and is safe for concurrent use.
type Builder struct {
	params SpeedParams
	index  *network.Index
}

// NewBuilder returns a builder over idx.
func NewBuilder(params SpeedParams, idx *network.Index) *Builder {
	return &Builder{params: params, index: idx}
}

// BuildDirect builds walk → ride → walk.
func (b *Builder) BuildDirect(origin, destination Endpoint, board, alight network.Stop, line network.Line) (Itinerary, error) {
	ride, err := b.ride(line, board, alight, b.params.BoardingFare)
	if err != nil {
		return Itinerary{}, err
	}

	it := Itinerary{
		Kind: KindDirect,
		Legs: []Leg{
			b.walk(placeFromEndpoint(origin), placeFromStop(board)),
			ride,
			b.walk(placeFromStop(alight), placeFromEndpoint(destination)),
		},
	}
	it.finalize()
	return it, nil
}

// BuildTransfer builds walk → ride → transfer → ride → walk. The second ride is
// priced so that the trip costs TransferFare in total.
func (b *Builder) BuildTransfer(
	origin, destination Endpoint,
	board, transfer, alight network.Stop,
	first, second network.Line,
) (Itinerary, error) {
	firstRide, err := b.ride(first, board, transfer, b.params.BoardingFare)
	if err != nil {
		return Itinerary{}, err
	}
	secondRide, err := b.ride(second, transfer, alight, b.params.TransferFare-b.params.BoardingFare)
	if err != nil {
		return Itinerary{}, err
	}

	it := Itinerary{
		Kind: KindTransfer,
		Legs: []Leg{
			b.walk(placeFromEndpoint(origin), placeFromStop(board)),
			firstRide,
			&TransferLeg{Stop: transfer, Minutes: b.params.TransferMinutes},
			secondRide,
			b.walk(placeFromStop(alight), placeFromEndpoint(destination)),
		},
	}
	it.finalize()
	return it, nil
}

// BuildWalk builds a single walking leg between the endpoints.
func (b *Builder) BuildWalk(origin, destination Endpoint) *WalkLeg {
	return b.walk(placeFromEndpoint(origin), placeFromEndpoint(destination))
}

func (b *Builder) walk(from, to Place) *WalkLeg {
	distance := from.Location.DistanceTo(to.Location)
	return &WalkLeg{
		From:     from,
		To:       to,
		Distance: distance,
		Minutes:  minutes(distance, b.params.WalkSpeedMetersPerMinute),
	}
}

func (b *Builder) ride(line network.Line, board, alight network.Stop, fare float64) (*RideLeg, error) {
	path, ok := b.index.StopsBetween(line.ID, board.ID, alight.ID)
	if !ok {
		return nil, fmt.Errorf("%w: line %q from %q to %q", ErrSequenceOrder, line.ID, board.ID, alight.ID)
	}
	boardSeq, _ := b.index.Sequence(line.ID, board.ID)
	alightSeq, _ := b.index.Sequence(line.ID, alight.ID)
	if boardSeq >= alightSeq {
		return nil, fmt.Errorf("%w: line %q sequence %d >= %d", ErrSequenceOrder, line.ID, boardSeq, alightSeq)
	}

	var distance float64
	for i := 1; i < len(path); i++ {
		distance += path[i-1].Location.DistanceTo(path[i].Location)
	}

	return &RideLeg{
		Line:        line,
		BoardStop:   board,
		AlightStop:  alight,
		Distance:    distance,
		Minutes:     minutes(distance, b.params.BusSpeedMetersPerMinute) + b.params.WaitMinutes,
		WaitMinutes: b.params.WaitMinutes,
		Fare:        math.Max(0, fare),
		Path:        path,
	}, nil
}

// minutes converts a distance to whole minutes at the given speed.
func minutes(meters, metersPerMinute float64) int {
	if metersPerMinute <= 0 {
		return 0
	}
	return int(math.Round(meters / metersPerMinute))
}
