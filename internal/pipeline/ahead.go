package pipeline

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/gigsahead/internal/gigs"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/proximity"
	"github.com/randytsao24/gigsahead/internal/reachability"
	"github.com/randytsao24/gigsahead/internal/sequence"
	"github.com/randytsao24/gigsahead/internal/traveltime"
)

// GigsAheadRequest identifies a rider's position on a route
type GigsAheadRequest struct {
	RouteID     int
	RouteType   models.RouteType
	StopID      int
	DirectionID int
}

// GigsAheadResult lists gigs near stops after the current one
type GigsAheadResult struct {
	RouteID              int                     `json:"route_id"`
	RouteType            models.RouteType        `json:"route_type"`
	RequestedDirectionID int                     `json:"requested_direction_id"`
	ActualDirectionID    int                     `json:"actual_direction_id"`
	CurrentStop          models.OrderedStop      `json:"current_stop"`
	StopsAhead           int                     `json:"stops_ahead"`
	FallbackEstimates    int                     `json:"fallback_estimates"`
	UnknownReachability  int                     `json:"unknown_reachability"`
	Events               []models.ReachableEvent `json:"events"`
}

// DirectionSubstituted reports whether stops came from another direction
func (r *GigsAheadResult) DirectionSubstituted() bool {
	return r.RequestedDirectionID != r.ActualDirectionID
}

func (req GigsAheadRequest) validate() error {
	if req.RouteID <= 0 {
		return &models.InvalidInputError{Field: "route id", Value: req.RouteID}
	}
	if req.StopID <= 0 {
		return &models.InvalidInputError{Field: "stop id", Value: req.StopID}
	}
	if req.DirectionID < 0 {
		return &models.InvalidInputError{Field: "direction id", Value: req.DirectionID}
	}
	return nil
}

// GigsAhead finds today's gigs within walking distance of the stops after
// the current one, with travel time and whether each can still be reached.
// Unreachable gigs are included and flagged.
func (p *Pipeline) GigsAhead(ctx context.Context, req GigsAheadRequest) (*GigsAheadResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ordered, actualDir, err := p.stopsWithFallback(ctx, req.RouteID, req.RouteType, req.DirectionID)
	if err != nil {
		return nil, err
	}

	current, ahead, found := sequence.Ahead(ordered, req.StopID)
	if !found {
		return nil, &models.NotFoundError{
			Resource: "stop",
			ID:       req.StopID,
			Detail:   fmt.Sprintf("on route %d direction %d", req.RouteID, actualDir),
		}
	}

	now := p.now()
	events, err := p.todaysEvents(ctx)
	if err != nil {
		return nil, err
	}

	aheadStops := make([]models.Stop, len(ahead))
	for i, s := range ahead {
		aheadStops[i] = s.Stop
	}
	matches := dedupeByEvent(proximity.FindNearMany(events, aheadStops, p.opts.RadiusMeters))

	estimates := p.estimateAll(ctx, current.Stop, matches, req.RouteType)

	result := &GigsAheadResult{
		RouteID:              req.RouteID,
		RouteType:            req.RouteType,
		RequestedDirectionID: req.DirectionID,
		ActualDirectionID:    actualDir,
		CurrentStop:          current,
		StopsAhead:           len(ahead),
		Events:               make([]models.ReachableEvent, 0, len(matches)),
	}

	for _, m := range matches {
		est := estimates[m.Stop.ID]
		reachable, err := reachability.Evaluate(m.Event, now, est.Minutes, p.opts.Location)
		if err != nil {
			p.log.Warn("cannot evaluate reachability", "event_id", m.Event.ID, "error", err)
			result.UnknownReachability++
		}
		if est.Fallback() {
			result.FallbackEstimates++
		}
		result.Events = append(result.Events, models.ReachableEvent{
			ProximityMatch:      m,
			TravelTimeMinutes:   est.Minutes,
			TravelTimeSource:    est.Source,
			IsReachable:         reachable,
			StartTimeDefaulted:  !reachability.HasStartTime(m.Event),
			ReachabilityUnknown: err != nil,
		})
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		a, b := result.Events[i].Event, result.Events[j].Event
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return gigs.StartKey(a) < gigs.StartKey(b)
	})

	p.log.Info("gigs ahead",
		"route_id", req.RouteID, "stop_id", req.StopID,
		"requested_direction_id", req.DirectionID, "actual_direction_id", actualDir,
		"stops_ahead", len(ahead), "events", len(result.Events), "fallback_estimates", result.FallbackEstimates)
	return result, nil
}

// dedupeByEvent keeps one match per event id, the nearest, with the first
// seen winning ties. Output keeps first-seen order.
func dedupeByEvent(matches []models.ProximityMatch) []models.ProximityMatch {
	index := make(map[string]int, len(matches))
	out := make([]models.ProximityMatch, 0, len(matches))
	for _, m := range matches {
		i, seen := index[m.Event.ID]
		if !seen {
			index[m.Event.ID] = len(out)
			out = append(out, m)
			continue
		}
		if m.DistanceMeters < out[i].DistanceMeters {
			out[i] = m
		}
	}
	return out
}

// estimateAll estimates travel time from the current stop to each distinct
// target stop, at most MaxConcurrency at a time. Each target is estimated once.
func (p *Pipeline) estimateAll(ctx context.Context, from models.Stop, matches []models.ProximityMatch, rt models.RouteType) map[int]traveltime.Estimate {
	var targets []int
	slot := make(map[int]int)
	for _, m := range matches {
		if _, ok := slot[m.Stop.ID]; ok {
			continue
		}
		slot[m.Stop.ID] = len(targets)
		targets = append(targets, m.Stop.ID)
	}

	results := make([]traveltime.Estimate, len(targets))

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrency)
	for i, to := range targets {
		i, to := i, to
		g.Go(func() error {
			est, err := p.estimator.Estimate(ctx, from.ID, to, rt)
			if err != nil {
				p.log.Warn("travel time estimate rejected, using fixed value",
					"from_stop", from.ID, "to_stop", to, "error", err)
				est = traveltime.Estimate{Minutes: traveltime.FixedMinutes(rt), Source: models.TravelTimeFixed}
			}
			results[i] = est
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int]traveltime.Estimate, len(targets))
	for id, i := range slot {
		out[id] = results[i]
	}
	return out
}
