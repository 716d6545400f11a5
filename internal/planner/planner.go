// Package planner searches a transit network for trips between two points. A
// search looks for direct rides first, then rides with one transfer, ranks what it
// found and falls back to walking or an explicit "no service" answer.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"tripsearch.onebusaway.org/internal/clock"
	"tripsearch.onebusaway.org/internal/logging"
	"tripsearch.onebusaway.org/internal/network"
)

// Repository supplies the network snapshot searched by each call. Snapshot must
// return stops and lines taken from the same version of the network.
type Repository interface {
	GetStopsSnapshot(ctx context.Context) ([]network.Stop, error)
	GetLinesSnapshot(ctx context.Context) ([]network.Line, error)
	Snapshot(ctx context.Context) ([]network.Stop, []network.Line, error)
}

// Recorder receives search telemetry. metrics.Metrics implements it.
type Recorder interface {
	RecordSearch(outcome string, duration time.Duration)
	RecordCandidates(stage string, count int)
	RecordTimeout()
}

type nopRecorder struct{}

func (nopRecorder) RecordSearch(string, time.Duration) {}
func (nopRecorder) RecordCandidates(string, int)       {}
func (nopRecorder) RecordTimeout()                     {}

// Search outcomes passed to Recorder.RecordSearch.
const (
	OutcomeDirect      = "direct"
	OutcomeTransfer    = "transfer"
	OutcomeWalkOnly    = "walk_only"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Request is a trip search.
type Request struct {
	Origin      Endpoint
	Destination Endpoint
	// MaxResults overrides the configured default when positive. It is capped at
	// SearchBounds.MaxResultsCap.
	MaxResults int
	// RequireAccessible limits the search to accessible stops and lines.
	RequireAccessible bool
}

// Result is the ranked answer to a Request. It always holds at least one itinerary.
type Result struct {
	Itineraries    []Itinerary
	Total          int
	TimedOut       bool
	FallbackReason string
	Duration       time.Duration
}

// Planner runs trip searches. It keeps no state between calls.
type Planner struct {
	repo     Repository
	config   Config
	logger   *slog.Logger
	clock    clock.Clock
	recorder Recorder
}

// Option customises a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// WithClock sets the clock used to time searches.
func WithClock(c clock.Clock) Option {
	return func(p *Planner) { p.clock = c }
}

// WithRecorder sets the telemetry sink.
func WithRecorder(r Recorder) Option {
	return func(p *Planner) { p.recorder = r }
}

// New returns a planner reading snapshots from repo.
func New(repo Repository, config Config, opts ...Option) *Planner {
	p := &Planner{
		repo:     repo,
		config:   config,
		logger:   slog.Default(),
		clock:    clock.RealClock{},
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "trip_planner"))
	return p
}

// Config returns the planner configuration.
func (p *Planner) Config() Config {
	return p.config
}

// Search finds itineraries for req. Finding no route is not an error: the result
// then holds a single walk_only or unavailable itinerary. Errors are returned for
// repository failures, invalid snapshots and caller cancellation.
func (p *Planner) Search(ctx context.Context, req Request) (*Result, error) {
	start := p.clock.Now()

	result, err := p.search(ctx, req)
	duration := p.clock.Since(start)

	if err != nil {
		p.recorder.RecordSearch(OutcomeError, duration)
		return nil, err
	}

	result.Duration = duration
	p.recorder.RecordSearch(outcomeOf(result), duration)
	if result.TimedOut {
		p.recorder.RecordTimeout()
	}

	p.logger.Debug("trip search finished",
		slog.Int("itineraries", result.Total),
		slog.Bool("timed_out", result.TimedOut),
		slog.String("fallback_reason", result.FallbackReason),
		slog.Duration("duration", duration))

	return result, nil
}

func (p *Planner) search(ctx context.Context, req Request) (*Result, error) {
	bounds := p.config.Bounds

	// snapshot reads use ctx, not searchCtx: a timeout degrades the answer, it never fails it
	searchCtx := ctx
	if bounds.PerCallTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, bounds.PerCallTimeout)
		defer cancel()
	}

	idx, err := p.loadIndex(ctx, req.RequireAccessible)
	if err != nil {
		return nil, err
	}

	maxResults := bounds.MaxResults
	if req.MaxResults > 0 {
		maxResults = min(req.MaxResults, max(bounds.MaxResultsCap, bounds.MaxResults))
	}

	locator := network.NewLocator(idx.Stops())
	originStops := stopsOf(locator.Nearby(req.Origin.Location, bounds.StopSearchRadiusMeters, bounds.MaxCandidateStopsPerSide))
	destStops := stopsOf(locator.Nearby(req.Destination.Location, bounds.StopSearchRadiusMeters, bounds.MaxCandidateStopsPerSide))

	if len(originStops) == 0 || len(destStops) == 0 {
		p.logger.Debug("no stops near an endpoint",
			slog.Int("origin_stops", len(originStops)),
			slog.Int("destination_stops", len(destStops)))
		return p.fallbackResult(req, FallbackNoNearbyService, false), nil
	}

	builder := NewBuilder(p.config.Speed, idx)

	direct := p.directSearch(searchCtx, req, idx, builder, originStops, destStops)
	candidates := direct

	if distinct := countDistinct(direct); distinct < maxResults {
		transfers := p.transferSearch(searchCtx, req, idx, builder, originStops, destStops, maxResults-distinct)
		candidates = append(candidates, transfers...)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("trip search interrupted: %w", err)
	}
	timedOut := errors.Is(searchCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		logging.LogOperation(p.logger, "trip_search_deadline_exceeded",
			slog.Int("completed_itineraries", len(candidates)),
			slog.Duration("timeout", bounds.PerCallTimeout))
	}

	ranked := RankAndTag(candidates, maxResults)
	if len(ranked) == 0 {
		return p.fallbackResult(req, FallbackNoConnectionFound, timedOut), nil
	}

	return &Result{
		Itineraries: ranked,
		Total:       len(ranked),
		TimedOut:    timedOut,
	}, nil
}

func (p *Planner) loadIndex(ctx context.Context, accessibleOnly bool) (*network.Index, error) {
	stops, lines, err := p.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading network snapshot: %w", err)
	}

	idx, err := network.BuildIndex(stops, lines)
	if err != nil {
		logging.LogError(p.logger, "network snapshot rejected", err,
			slog.Int("stops", len(stops)),
			slog.Int("lines", len(lines)))
		return nil, err
	}

	if accessibleOnly {
		idx, err = idx.Filter(
			func(s network.Stop) bool { return s.Accessible },
			func(l network.Line) bool { return l.Accessible },
		)
		if err != nil {
			return nil, fmt.Errorf("filtering accessible network: %w", err)
		}
	}
	return idx, nil
}

func (p *Planner) fallbackResult(req Request, reason string, timedOut bool) *Result {
	it := p.fallback(req.Origin, req.Destination)
	return &Result{
		Itineraries:    []Itinerary{it},
		Total:          1,
		TimedOut:       timedOut,
		FallbackReason: reason,
	}
}

// directSearch evaluates every (origin stop, destination stop) pair. Results are
// merged in pair order so the outcome does not depend on scheduling.
func (p *Planner) directSearch(
	ctx context.Context,
	req Request,
	idx *network.Index,
	builder *Builder,
	originStops, destStops []network.Stop,
) []Itinerary {
	type pair struct{ board, alight network.Stop }
	pairs := make([]pair, 0, len(originStops)*len(destStops))
	for _, o := range originStops {
		for _, d := range destStops {
			if o.ID != d.ID {
				pairs = append(pairs, pair{o, d})
			}
		}
	}

	results := p.runCandidates(ctx, "direct", len(pairs), func(i int) []Itinerary {
		pr := pairs[i]
		var found []Itinerary
		for _, line := range LinesConnecting(pr.board, pr.alight, idx) {
			it, err := builder.BuildDirect(req.Origin, req.Destination, pr.board, pr.alight, line)
			if err != nil {
				logging.LogError(p.logger, "dropping direct candidate", err)
				continue
			}
			found = append(found, it)
		}
		return found
	})

	return flatten(results)
}

// transferSearch evaluates one-transfer trips for the nearest stops on each side
// and keeps at most limit distinct ones, in candidate order.
func (p *Planner) transferSearch(
	ctx context.Context,
	req Request,
	idx *network.Index,
	builder *Builder,
	originStops, destStops []network.Stop,
	limit int,
) []Itinerary {
	bounds := p.config.Bounds

	excluding := make(map[string]struct{}, len(originStops)+len(destStops))
	for _, s := range originStops {
		excluding[s.ID] = struct{}{}
	}
	for _, s := range destStops {
		excluding[s.ID] = struct{}{}
	}

	origins := originStops[:min(len(originStops), bounds.TransferStopsPerSide)]
	dests := destStops[:min(len(destStops), bounds.TransferStopsPerSide)]

	type pair struct{ board, alight network.Stop }
	pairs := make([]pair, 0, len(origins)*len(dests))
	for _, o := range origins {
		for _, d := range dests {
			if o.ID != d.ID {
				pairs = append(pairs, pair{o, d})
			}
		}
	}

	results := p.runCandidates(ctx, "transfer", len(pairs), func(i int) []Itinerary {
		pr := pairs[i]
		transferStops := CandidateTransferStops(
			linesServing(pr.board, idx),
			linesServing(pr.alight, idx),
			idx,
			excluding,
			bounds.MaxTransferCandidates,
			detourRank(pr.board, pr.alight, idx),
		)

		var found []Itinerary
		for _, ts := range transferStops {
			if ctx.Err() != nil {
				break
			}
			firstLines := LinesConnecting(pr.board, ts, idx)
			if len(firstLines) == 0 {
				continue
			}
			secondLines := LinesConnecting(ts, pr.alight, idx)
			for _, first := range firstLines {
				for _, second := range secondLines {
					if first.ID == second.ID {
						continue
					}
					it, err := builder.BuildTransfer(req.Origin, req.Destination, pr.board, ts, pr.alight, first, second)
					if err != nil {
						logging.LogError(p.logger, "dropping transfer candidate", err)
						continue
					}
					found = append(found, it)
				}
			}
		}
		return found
	})

	seen := make(map[string]bool)
	var kept []Itinerary
	for _, it := range flatten(results) {
		if len(seen) >= limit {
			break
		}
		sig := it.Signature()
		if seen[sig] {
			continue
		}
		seen[sig] = true
		kept = append(kept, it)
	}
	return kept
}

// runCandidates evaluates n independent candidates on a bounded pool. Once ctx is
// done no new candidate is started; slots of skipped candidates stay nil.
func (p *Planner) runCandidates(ctx context.Context, stage string, n int, eval func(i int) []Itinerary) [][]Itinerary {
	results := make([][]Itinerary, n)

	var g errgroup.Group
	g.SetLimit(max(1, p.config.Bounds.Workers))

	started := 0
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = eval(i)
			return nil
		})
	}
	_ = g.Wait()

	p.recorder.RecordCandidates(stage, started)
	return results
}

func flatten(groups [][]Itinerary) []Itinerary {
	var out []Itinerary
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func countDistinct(its []Itinerary) int {
	seen := make(map[string]bool, len(its))
	for i := range its {
		seen[its[i].Signature()] = true
	}
	return len(seen)
}

func stopsOf(nearby []network.NearbyStop) []network.Stop {
	stops := make([]network.Stop, 0, len(nearby))
	for _, n := range nearby {
		stops = append(stops, n.Stop)
	}
	return stops
}

func outcomeOf(r *Result) string {
	if len(r.Itineraries) == 0 {
		return OutcomeUnavailable
	}
	switch r.Itineraries[0].Kind {
	case KindDirect:
		return OutcomeDirect
	case KindTransfer:
		return OutcomeTransfer
	case KindWalkOnly:
		return OutcomeWalkOnly
	default:
		return OutcomeUnavailable
	}
}
