package gtfs

import (
	"fmt"
	"sort"

	"github.com/OneBusAway/go-gtfs"
	"tripsearch.onebusaway.org/internal/network"
)

// ConversionStats summarizes what ConvertStatic kept and dropped.
type ConversionStats struct {
	Routes       int `json:"routes"`
	Trips        int `json:"trips"`
	Stops        int `json:"stops"`
	Lines        int `json:"lines"`
	SkippedStops int `json:"skippedStops"`
	SkippedLines int `json:"skippedLines"`
	FeedWarnings int `json:"feedWarnings"`
}

type patternKey struct {
	routeID   string
	direction string
}

// ConvertStatic turns a parsed feed into a network snapshot. Every (route,
// direction) pair becomes one line whose stop order is taken from the trip
// with the most stop times; ties go to the lowest trip ID. Only stops served
// by at least one line are kept, in feed order.
func ConvertStatic(data *gtfs.Static) ([]network.Stop, []network.Line, ConversionStats) {
	stats := ConversionStats{
		Routes:       len(data.Routes),
		Trips:        len(data.Trips),
		FeedWarnings: len(data.Warnings),
	}

	located := make(map[string]bool, len(data.Stops))
	for _, s := range data.Stops {
		if s.Latitude == nil || s.Longitude == nil {
			stats.SkippedStops++
			continue
		}
		located[s.Id] = true
	}

	canonical := make(map[patternKey]*gtfs.ScheduledTrip)
	for i := range data.Trips {
		t := &data.Trips[i]
		if t.Route == nil {
			continue
		}
		key := patternKey{routeID: t.Route.Id, direction: fmt.Sprintf("%d", t.DirectionId)}
		current, ok := canonical[key]
		if !ok || len(t.StopTimes) > len(current.StopTimes) ||
			(len(t.StopTimes) == len(current.StopTimes) && t.ID < current.ID) {
			canonical[key] = t
		}
	}

	served := make(map[string]bool)
	lines := make([]network.Line, 0, len(canonical))
	for key, trip := range canonical {
		line, ok := lineFromTrip(key, trip, located)
		if !ok {
			stats.SkippedLines++
			continue
		}
		for _, ls := range line.Stops {
			served[ls.StopID] = true
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })

	var stops []network.Stop
	for _, s := range data.Stops {
		if !located[s.Id] || !served[s.Id] {
			continue
		}
		stops = append(stops, network.Stop{
			ID:         s.Id,
			Code:       s.Code,
			Name:       s.Name,
			Location:   network.Coordinate{Lat: *s.Latitude, Lon: *s.Longitude},
			Accessible: int64(s.WheelchairBoarding) == 1,
		})
	}

	stats.Stops = len(stops)
	stats.Lines = len(lines)
	return stops, lines, stats
}

// lineFromTrip builds the line for one pattern. Stop times at unlocated stops
// and repeated sequence numbers are dropped; fewer than two remaining stops
// means the pattern cannot be ridden.
func lineFromTrip(key patternKey, trip *gtfs.ScheduledTrip, located map[string]bool) (network.Line, bool) {
	stopTimes := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
	copy(stopTimes, trip.StopTimes)
	sort.SliceStable(stopTimes, func(i, j int) bool {
		return stopTimes[i].StopSequence < stopTimes[j].StopSequence
	})

	var stops []network.LineStop
	for _, st := range stopTimes {
		if st.Stop == nil || !located[st.Stop.Id] {
			continue
		}
		if n := len(stops); n > 0 && stops[n-1].Sequence >= st.StopSequence {
			continue
		}
		stops = append(stops, network.LineStop{StopID: st.Stop.Id, Sequence: st.StopSequence})
	}
	if len(stops) < 2 {
		return network.Line{}, false
	}

	name := trip.Route.LongName
	if name == "" {
		name = trip.Headsign
	}

	return network.Line{
		ID:         key.routeID + ":" + key.direction,
		Code:       trip.Route.ShortName,
		Name:       name,
		Accessible: int64(trip.WheelchairAccessible) == 1,
		Stops:      stops,
	}, true
}
