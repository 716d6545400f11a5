package network

import (
	"context"
	"slices"
)

// StaticRepository serves a fixed snapshot held in memory.
type StaticRepository struct {
	stops []Stop
	lines []Line
}

// NewStaticRepository returns a repository over copies of stops and lines.
func NewStaticRepository(stops []Stop, lines []Line) *StaticRepository {
	return &StaticRepository{
		stops: slices.Clone(stops),
		lines: cloneLines(lines),
	}
}

func (r *StaticRepository) GetStopsSnapshot(ctx context.Context) ([]Stop, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(r.stops), nil
}

func (r *StaticRepository) GetLinesSnapshot(ctx context.Context) ([]Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return cloneLines(r.lines), nil
}

// Snapshot returns copies of the stops and lines together.
func (r *StaticRepository) Snapshot(ctx context.Context) ([]Stop, []Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return slices.Clone(r.stops), cloneLines(r.lines), nil
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		l.Stops = slices.Clone(l.Stops)
		out[i] = l
	}
	return out
}
