package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/sequence"
)

// DirectionStops is one direction of a route with its stops in travel order
type DirectionStops struct {
	Direction models.Direction     `json:"direction"`
	Stops     []models.OrderedStop `json:"stops"`
}

// RouteStopsResult is a route with stops for every direction
type RouteStopsResult struct {
	RouteID    int              `json:"route_id"`
	RouteName  string           `json:"route_name"`
	RouteType  models.RouteType `json:"route_type"`
	Directions []DirectionStops `json:"directions"`
}

// orderedStops fetches and resolves one direction, dropping stops whose
// position could not be determined.
func (p *Pipeline) orderedStops(ctx context.Context, routeID int, rt models.RouteType, directionID int) ([]models.OrderedStop, error) {
	stops, err := p.transit.Stops(ctx, routeID, rt, directionID)
	if err != nil {
		return nil, fmt.Errorf("fetching stops for route %d direction %d: %w", routeID, directionID, err)
	}
	ordered := sequence.Resolve(stops, rt)
	resolved := sequence.Resolved(ordered)
	if dropped := len(ordered) - len(resolved); dropped > 0 {
		p.log.Warn("dropping stops without a sequence",
			"route_id", routeID, "direction_id", directionID, "dropped", dropped)
	}
	return resolved, nil
}

// stopsWithFallback fetches the requested direction and, for retryable
// routes, walks the other directions when it fails or is empty. It returns
// the direction the stops actually came from.
func (p *Pipeline) stopsWithFallback(ctx context.Context, routeID int, rt models.RouteType, directionID int) ([]models.OrderedStop, int, error) {
	stops, err := p.orderedStops(ctx, routeID, rt, directionID)
	if err == nil && len(stops) > 0 {
		return stops, directionID, nil
	}
	if !p.retries(routeID) {
		return stops, directionID, err
	}

	p.log.Warn("requested direction unusable, trying other directions",
		"route_id", routeID, "direction_id", directionID, "empty", err == nil, "error", err)

	directions, dirErr := p.transit.Directions(ctx, routeID)
	if dirErr != nil {
		p.log.Warn("cannot list directions for retry", "route_id", routeID, "error", dirErr)
		return stops, directionID, err
	}

	for _, d := range directions {
		if d.ID == directionID {
			continue
		}
		alt, altErr := p.orderedStops(ctx, routeID, rt, d.ID)
		if altErr != nil {
			p.log.Warn("alternate direction failed", "route_id", routeID, "direction_id", d.ID, "error", altErr)
			continue
		}
		if len(alt) == 0 {
			continue
		}
		p.log.Info("using alternate direction",
			"route_id", routeID, "requested_direction_id", directionID, "actual_direction_id", d.ID)
		return alt, d.ID, nil
	}

	return stops, directionID, err
}

func (p *Pipeline) routeName(ctx context.Context, routeID int) string {
	route, err := p.transit.Route(ctx, routeID)
	if err != nil || route.Name == "" {
		if err != nil {
			p.log.Warn("route name unavailable", "route_id", routeID, "error", err)
		}
		return strconv.Itoa(routeID)
	}
	return route.Name
}

// RouteStops returns the route's name and resolved stops for each direction
func (p *Pipeline) RouteStops(ctx context.Context, routeID int, rt models.RouteType) (*RouteStopsResult, error) {
	if routeID <= 0 {
		return nil, &models.InvalidInputError{Field: "route id", Value: routeID}
	}

	directions, err := p.transit.Directions(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("fetching directions for route %d: %w", routeID, err)
	}
	if len(directions) == 0 {
		return nil, &models.NotFoundError{Resource: "route", ID: routeID, Detail: "has no directions"}
	}

	result := &RouteStopsResult{
		RouteID:    routeID,
		RouteName:  p.routeName(ctx, routeID),
		RouteType:  rt,
		Directions: make([]DirectionStops, 0, len(directions)),
	}
	for _, d := range directions {
		stops, err := p.orderedStops(ctx, routeID, rt, d.ID)
		if err != nil {
			return nil, err
		}
		result.Directions = append(result.Directions, DirectionStops{Direction: d, Stops: stops})
	}
	return result, nil
}
