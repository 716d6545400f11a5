package network

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidSnapshot marks a stop/line snapshot that cannot be searched. It is a
// data problem, not a routing outcome.
var ErrInvalidSnapshot = errors.New("invalid network snapshot")

// MinStopsPerLine is the smallest number of stops a line needs to carry a rider.
const MinStopsPerLine = 2

// Index is the membership index derived from a snapshot. It is never mutated after
// BuildIndex returns, so it can be shared between goroutines without locking.
type Index struct {
	stops       map[string]Stop
	lines       map[string]Line
	stopLines   map[string][]string
	sequences   map[string]map[string]int
	positions   map[string]map[string]int
	stopOrder   []string
	lineOrder   []string
	lineVisited map[string][]string
}

// BuildIndex validates the snapshot and builds the membership index.
//
// A line that references an unknown stop, has fewer than MinStopsPerLine stops or
// whose sequence indices are not strictly increasing makes the snapshot invalid.
// When a line visits the same stop twice, the first visit wins.
func BuildIndex(stops []Stop, lines []Line) (*Index, error) {
	idx := &Index{
		stops:       make(map[string]Stop, len(stops)),
		lines:       make(map[string]Line, len(lines)),
		stopLines:   make(map[string][]string),
		sequences:   make(map[string]map[string]int, len(lines)),
		positions:   make(map[string]map[string]int, len(lines)),
		stopOrder:   make([]string, 0, len(stops)),
		lineOrder:   make([]string, 0, len(lines)),
		lineVisited: make(map[string][]string, len(lines)),
	}

	for _, stop := range stops {
		if stop.ID == "" {
			return nil, fmt.Errorf("%w: stop with empty id", ErrInvalidSnapshot)
		}
		if _, dup := idx.stops[stop.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stop %q", ErrInvalidSnapshot, stop.ID)
		}
		idx.stops[stop.ID] = stop
		idx.stopOrder = append(idx.stopOrder, stop.ID)
	}

	for _, line := range lines {
		if line.ID == "" {
			return nil, fmt.Errorf("%w: line with empty id", ErrInvalidSnapshot)
		}
		if _, dup := idx.lines[line.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate line %q", ErrInvalidSnapshot, line.ID)
		}
		if len(line.Stops) < MinStopsPerLine {
			return nil, fmt.Errorf("%w: line %q has %d stops, need at least %d",
				ErrInvalidSnapshot, line.ID, len(line.Stops), MinStopsPerLine)
		}

		seq := make(map[string]int, len(line.Stops))
		pos := make(map[string]int, len(line.Stops))
		visited := make([]string, 0, len(line.Stops))
		for i, ls := range line.Stops {
			if _, ok := idx.stops[ls.StopID]; !ok {
				return nil, fmt.Errorf("%w: line %q references unknown stop %q",
					ErrInvalidSnapshot, line.ID, ls.StopID)
			}
			if i > 0 && ls.Sequence <= line.Stops[i-1].Sequence {
				return nil, fmt.Errorf("%w: line %q sequence %d at position %d is not increasing",
					ErrInvalidSnapshot, line.ID, ls.Sequence, i)
			}
			if _, seen := seq[ls.StopID]; seen {
				continue
			}
			seq[ls.StopID] = ls.Sequence
			pos[ls.StopID] = i
			visited = append(visited, ls.StopID)
		}

		for _, stopID := range visited {
			idx.stopLines[stopID] = append(idx.stopLines[stopID], line.ID)
		}
		idx.lines[line.ID] = line
		idx.sequences[line.ID] = seq
		idx.positions[line.ID] = pos
		idx.lineVisited[line.ID] = visited
		idx.lineOrder = append(idx.lineOrder, line.ID)
	}

	for stopID := range idx.stopLines {
		sort.Strings(idx.stopLines[stopID])
	}

	return idx, nil
}

// Stop looks up a stop by ID.
func (idx *Index) Stop(id string) (Stop, bool) {
	s, ok := idx.stops[id]
	return s, ok
}

// Line looks up a line by ID.
func (idx *Index) Line(id string) (Line, bool) {
	l, ok := idx.lines[id]
	return l, ok
}

// Stops returns all stops in snapshot order.
func (idx *Index) Stops() []Stop {
	out := make([]Stop, 0, len(idx.stopOrder))
	for _, id := range idx.stopOrder {
		out = append(out, idx.stops[id])
	}
	return out
}

// Lines returns all lines in snapshot order.
func (idx *Index) Lines() []Line {
	out := make([]Line, 0, len(idx.lineOrder))
	for _, id := range idx.lineOrder {
		out = append(out, idx.lines[id])
	}
	return out
}

// LinesAt returns the IDs of lines serving the stop, sorted. The slice must not be modified.
func (idx *Index) LinesAt(stopID string) []string {
	return idx.stopLines[stopID]
}

// Serves reports whether the line visits the stop.
func (idx *Index) Serves(lineID, stopID string) bool {
	_, ok := idx.sequences[lineID][stopID]
	return ok
}

// Sequence returns the sequence index of the stop on the line.
func (idx *Index) Sequence(lineID, stopID string) (int, bool) {
	seq, ok := idx.sequences[lineID][stopID]
	return seq, ok
}

// Position returns the zero-based position of the stop's first visit on the line.
func (idx *Index) Position(lineID, stopID string) (int, bool) {
	pos, ok := idx.positions[lineID][stopID]
	return pos, ok
}

// StopsBetween returns the stops a rider passes through on the line from board to
// alight, both included, in travel order. ok is false if the line does not visit
// both stops in that order.
func (idx *Index) StopsBetween(lineID, boardID, alightID string) (stops []Stop, ok bool) {
	pos := idx.positions[lineID]
	from, okFrom := pos[boardID]
	to, okTo := pos[alightID]
	if !okFrom || !okTo || from >= to {
		return nil, false
	}
	line := idx.lines[lineID]
	stops = make([]Stop, 0, to-from+1)
	for _, ls := range line.Stops[from : to+1] {
		stops = append(stops, idx.stops[ls.StopID])
	}
	return stops, true
}

// StopsOn returns the distinct stop IDs the line visits in travel order.
func (idx *Index) StopsOn(lineID string) []string {
	return idx.lineVisited[lineID]
}

// Filter returns a new index restricted to the stops and lines accepted by the
// predicates. Lines left with fewer than MinStopsPerLine stops are dropped rather
// than rejected, since the filtered view is derived from an already valid snapshot.
func (idx *Index) Filter(keepStop func(Stop) bool, keepLine func(Line) bool) (*Index, error) {
	stops := make([]Stop, 0, len(idx.stopOrder))
	kept := make(map[string]bool, len(idx.stopOrder))
	for _, s := range idx.Stops() {
		if keepStop == nil || keepStop(s) {
			stops = append(stops, s)
			kept[s.ID] = true
		}
	}

	lines := make([]Line, 0, len(idx.lineOrder))
	for _, l := range idx.Lines() {
		if keepLine != nil && !keepLine(l) {
			continue
		}
		filtered := l
		filtered.Stops = make([]LineStop, 0, len(l.Stops))
		for _, ls := range l.Stops {
			if kept[ls.StopID] {
				filtered.Stops = append(filtered.Stops, ls)
			}
		}
		if len(filtered.Stops) < MinStopsPerLine {
			continue
		}
		lines = append(lines, filtered)
	}

	return BuildIndex(stops, lines)
}
