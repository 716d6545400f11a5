package gtfs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tripsearch.onebusaway.org/internal/network"
	"tripsearch.onebusaway.org/internal/planner"
)

// corridor is a two-stop line along the equator whose IDs carry prefix, so two
// corridors share no stop.
func corridor(prefix string) *network.StaticRepository {
	stops := []network.Stop{
		{ID: prefix + "1", Location: network.Coordinate{Lat: 0, Lon: 0}},
		{ID: prefix + "2", Location: network.Coordinate{Lat: 0, Lon: 0.02}},
	}
	lines := []network.Line{{
		ID: prefix + "L", Code: prefix,
		Stops: []network.LineStop{{StopID: prefix + "1", Sequence: 1}, {StopID: prefix + "2", Sequence: 2}},
	}}
	return network.NewStaticRepository(stops, lines)
}

func (manager *Manager) swapSnapshot(next *network.StaticRepository) {
	manager.staticMutex.Lock()
	manager.snapshot = next
	manager.staticMutex.Unlock()
}

// reloadingRepository replaces the served network right after stops are read,
// as a periodic reload finishing at that moment would.
type reloadingRepository struct {
	*Manager
	next *network.StaticRepository
}

func (r reloadingRepository) GetStopsSnapshot(ctx context.Context) ([]network.Stop, error) {
	stops, err := r.Manager.GetStopsSnapshot(ctx)
	r.swapSnapshot(r.next)
	return stops, err
}

var corridorTrip = planner.Request{
	Origin:      planner.Endpoint{Name: "home", Location: network.Coordinate{Lat: 0, Lon: -0.002}},
	Destination: planner.Endpoint{Name: "work", Location: network.Coordinate{Lat: 0, Lon: 0.022}},
}

func TestSnapshotNotReady(t *testing.T) {
	_, _, err := (&Manager{}).Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSearchSurvivesReloadBetweenReads(t *testing.T) {
	manager := &Manager{snapshot: corridor("A")}
	repo := reloadingRepository{Manager: manager, next: corridor("B")}

	p := planner.New(repo, planner.DefaultConfig())
	result, err := p.Search(context.Background(), corridorTrip)
	require.NoError(t, err)
	require.NotEmpty(t, result.Itineraries)
	assert.Equal(t, planner.KindDirect, result.Itineraries[0].Kind)
	assert.Equal(t, "A", result.Itineraries[0].Summary())

	stops, lines, err := manager.Snapshot(context.Background())
	require.NoError(t, err)
	_, err = network.BuildIndex(stops, lines)
	assert.NoError(t, err)
}

func TestSnapshotConsistentUnderConcurrentReloads(t *testing.T) {
	a, b := corridor("A"), corridor("B")
	manager := &Manager{snapshot: a}
	p := planner.New(manager, planner.DefaultConfig())

	stop := make(chan struct{})
	var wg sync.WaitGroup
	defer func() {
		close(stop)
		wg.Wait()
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				manager.swapSnapshot(b)
			} else {
				manager.swapSnapshot(a)
			}
		}
	}()

	for i := 0; i < 200; i++ {
		result, err := p.Search(context.Background(), corridorTrip)
		require.NoError(t, err)
		require.NotEmpty(t, result.Itineraries)
		assert.Equal(t, planner.KindDirect, result.Itineraries[0].Kind)
	}
}
