package planner

import (
	"context"
	"errors"
	"sync"
	"time"

	"tripsearch.onebusaway.org/internal/network"
)

// Along the equator 0.001° of longitude is about 111.2 m.
func stopAt(id string, lat, lon float64) network.Stop {
	return network.Stop{
		ID:         id,
		Name:       "Stop " + id,
		Location:   network.Coordinate{Lat: lat, Lon: lon},
		Accessible: true,
	}
}

func lineThrough(id string, stopIDs ...string) network.Line {
	stops := make([]network.LineStop, len(stopIDs))
	for i, s := range stopIDs {
		stops[i] = network.LineStop{StopID: s, Sequence: (i + 1) * 10}
	}
	return network.Line{ID: id, Code: id, Name: "Line " + id, Accessible: true, Stops: stops}
}

func endpointAt(name string, lat, lon float64) Endpoint {
	return Endpoint{Name: name, Location: network.Coordinate{Lat: lat, Lon: lon}}
}

func mustIndex(stops []network.Stop, lines []network.Line) *network.Index {
	idx, err := network.BuildIndex(stops, lines)
	if err != nil {
		panic(err)
	}
	return idx
}

// directNetwork has line L1 running S1 → S2 → T1 eastwards and L9 running the
// other way between T1 and S1.
func directNetwork() ([]network.Stop, []network.Line) {
	stops := []network.Stop{
		stopAt("S1", 0, 0),
		stopAt("S2", 0, 0.010),
		stopAt("T1", 0, 0.020),
	}
	lines := []network.Line{
		lineThrough("L1", "S1", "S2", "T1"),
		lineThrough("L9", "T1", "S1"),
	}
	return stops, lines
}

// transferNetwork only connects O1 to D1 by changing at M from L1 to L2.
func transferNetwork() ([]network.Stop, []network.Line) {
	stops := []network.Stop{
		stopAt("O1", 0, 0),
		stopAt("M", 0, 0.020),
		stopAt("D1", 0, 0.040),
	}
	lines := []network.Line{
		lineThrough("L1", "O1", "M"),
		lineThrough("L2", "M", "D1"),
	}
	return stops, lines
}

// syntheticItinerary rides the given lines, putting all minutes and the fare on the
// first ride.
func syntheticItinerary(minutes int, fare float64, lineIDs ...string) Itinerary {
	it := Itinerary{Kind: KindDirect}
	for i, id := range lineIDs {
		if i > 0 {
			it.Kind = KindTransfer
			it.Legs = append(it.Legs, &TransferLeg{Stop: network.Stop{ID: "X" + id}})
		}
		ride := &RideLeg{Line: network.Line{ID: id}}
		if i == 0 {
			ride.Minutes = minutes
			ride.Fare = fare
		}
		it.Legs = append(it.Legs, ride)
	}
	it.finalize()
	return it
}

type fakeRecorder struct {
	mu         sync.Mutex
	outcomes   []string
	candidates map[string]int
	timeouts   int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{candidates: make(map[string]int)}
}

func (r *fakeRecorder) RecordSearch(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *fakeRecorder) RecordCandidates(stage string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[stage] += count
}

func (r *fakeRecorder) RecordTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts++
}

var errRepositoryDown = errors.New("repository down")

type failingRepository struct {
	failStops bool
}

func (r failingRepository) GetStopsSnapshot(context.Context) ([]network.Stop, error) {
	if r.failStops {
		return nil, errRepositoryDown
	}
	return nil, nil
}

func (r failingRepository) GetLinesSnapshot(context.Context) ([]network.Line, error) {
	return nil, errRepositoryDown
}

func (r failingRepository) Snapshot(ctx context.Context) ([]network.Stop, []network.Line, error) {
	stops, err := r.GetStopsSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	lines, err := r.GetLinesSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	return stops, lines, nil
}

// slowRepository ignores its context and answers after delay.
type slowRepository struct {
	*network.StaticRepository
	delay time.Duration
}

func (r slowRepository) Snapshot(ctx context.Context) ([]network.Stop, []network.Line, error) {
	time.Sleep(r.delay)
	return r.StaticRepository.Snapshot(ctx)
}
