package pipeline

import (
	"context"
	"fmt"

	"github.com/randytsao24/gigsahead/internal/gigs"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/proximity"
)

// NearbyGigsResult is every stop of a route that has gigs within range
type NearbyGigsResult struct {
	RouteID   int                  `json:"route_id"`
	RouteName string               `json:"route_name"`
	RouteType models.RouteType     `json:"route_type"`
	Stops     []proximity.StopGigs `json:"stops"`
	GigCount  int                  `json:"gig_count"`
}

// NearbyGigs groups today's gigs by the route stops they are near, across
// all directions. Stops served by several directions appear once.
func (p *Pipeline) NearbyGigs(ctx context.Context, routeID int, rt models.RouteType) (*NearbyGigsResult, error) {
	if routeID <= 0 {
		return nil, &models.InvalidInputError{Field: "route id", Value: routeID}
	}

	directions, err := p.transit.Directions(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("fetching directions for route %d: %w", routeID, err)
	}

	var (
		stops   []models.Stop
		seen    = make(map[int]bool)
		lastErr error
		usable  int
	)
	for _, d := range directions {
		ordered, err := p.orderedStops(ctx, routeID, rt, d.ID)
		if err != nil {
			p.log.Warn("skipping direction", "route_id", routeID, "direction_id", d.ID, "error", err)
			lastErr = err
			continue
		}
		usable++
		for _, s := range ordered {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			stops = append(stops, s.Stop)
		}
	}
	if usable == 0 {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, &models.NotFoundError{Resource: "route", ID: routeID, Detail: "has no directions"}
	}

	events, err := p.todaysEvents(ctx)
	if err != nil {
		return nil, err
	}

	grouped := proximity.GroupByStop(events, stops, p.opts.RadiusMeters)
	distinct := make(map[string]bool)
	for _, sg := range grouped {
		for _, g := range sg.Gigs {
			distinct[g.Event.ID] = true
		}
	}

	return &NearbyGigsResult{
		RouteID:   routeID,
		RouteName: p.routeName(ctx, routeID),
		RouteType: rt,
		Stops:     grouped,
		GigCount:  len(distinct),
	}, nil
}

// TodaysGigs lists today's gigs ordered by date and start time
func (p *Pipeline) TodaysGigs(ctx context.Context) ([]models.Event, error) {
	events, err := p.todaysEvents(ctx)
	if err != nil {
		return nil, err
	}
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	gigs.SortByStart(sorted)
	return sorted, nil
}

func (p *Pipeline) todaysEvents(ctx context.Context) ([]models.Event, error) {
	now := p.now()
	events, err := p.events.GigsForDateRange(ctx, p.opts.EventLocation, now, now)
	if err != nil {
		return nil, fmt.Errorf("fetching today's gigs: %w", err)
	}
	return events, nil
}
