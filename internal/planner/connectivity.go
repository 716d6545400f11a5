package planner

import (
	"sort"

	"tripsearch.onebusaway.org/internal/network"
)

// LinesConnecting returns the lines a rider can board at from and leave at to,
// i.e. lines serving both stops with from visited before to. Lines with fewer
// stops in between come first; ties are broken by line ID.
func LinesConnecting(from, to network.Stop, idx *network.Index) []network.Line {
	if from.ID == to.ID {
		return nil
	}

	fromLines := idx.LinesAt(from.ID)
	toLines := idx.LinesAt(to.ID)
	if len(fromLines) == 0 || len(toLines) == 0 {
		return nil
	}

	// both slices are sorted, so a merge walk yields the intersection
	type hop struct {
		line network.Line
		hops int
	}
	var connecting []hop
	i, j := 0, 0
	for i < len(fromLines) && j < len(toLines) {
		switch {
		case fromLines[i] < toLines[j]:
			i++
		case fromLines[i] > toLines[j]:
			j++
		default:
			lineID := fromLines[i]
			i++
			j++

			fromSeq, _ := idx.Sequence(lineID, from.ID)
			toSeq, _ := idx.Sequence(lineID, to.ID)
			if fromSeq >= toSeq {
				continue
			}
			fromPos, _ := idx.Position(lineID, from.ID)
			toPos, _ := idx.Position(lineID, to.ID)
			line, _ := idx.Line(lineID)
			connecting = append(connecting, hop{line: line, hops: toPos - fromPos})
		}
	}

	sort.SliceStable(connecting, func(a, b int) bool {
		if connecting[a].hops != connecting[b].hops {
			return connecting[a].hops < connecting[b].hops
		}
		return connecting[a].line.ID < connecting[b].line.ID
	})

	lines := make([]network.Line, 0, len(connecting))
	for _, c := range connecting {
		lines = append(lines, c.line)
	}
	return lines
}

// linesServing returns every line that visits the stop, in line ID order.
func linesServing(stop network.Stop, idx *network.Index) []network.Line {
	ids := idx.LinesAt(stop.ID)
	lines := make([]network.Line, 0, len(ids))
	for _, id := range ids {
		if line, ok := idx.Line(id); ok {
			lines = append(lines, line)
		}
	}
	return lines
}
