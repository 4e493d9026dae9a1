package ptv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/randytsao24/gigsahead/internal/cache"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
)

// Client wraps an Executor with typed endpoints and response caching
type Client struct {
	exec  Executor
	cache *cache.Layered
	log   logging.Logger
}

// NewClient creates a client. A nil cache disables caching.
func NewClient(exec Executor, c *cache.Layered, log logging.Logger) *Client {
	if log == nil {
		log = logging.Nop()
	}
	return &Client{exec: exec, cache: c, log: log}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.exec.Get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &models.UpstreamError{Service: serviceName, Op: path, Err: fmt.Errorf("parsing response: %w", err)}
	}
	return nil
}

// RouteTypes lists transport modes
func (c *Client) RouteTypes(ctx context.Context) ([]models.RouteTypeInfo, error) {
	return cache.Fetch(ctx, c.cache, "route_types", func(ctx context.Context) ([]models.RouteTypeInfo, error) {
		var resp routeTypesResponse
		if err := c.getJSON(ctx, "/v3/route_types", nil, &resp); err != nil {
			return nil, err
		}
		out := make([]models.RouteTypeInfo, 0, len(resp.RouteTypes))
		for _, rt := range resp.RouteTypes {
			out = append(out, models.RouteTypeInfo{Type: models.RouteType(rt.RouteType), Name: rt.RouteTypeName})
		}
		return out, nil
	})
}

// RoutesByType lists routes of one mode
func (c *Client) RoutesByType(ctx context.Context, rt models.RouteType) ([]models.Route, error) {
	key := fmt.Sprintf("routes_type_%d", rt)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]models.Route, error) {
		q := url.Values{}
		q.Set("route_types", strconv.Itoa(int(rt)))

		var resp routesResponse
		if err := c.getJSON(ctx, "/v3/routes", q, &resp); err != nil {
			return nil, err
		}
		out := make([]models.Route, 0, len(resp.Routes))
		for _, r := range resp.Routes {
			out = append(out, r.toModel())
		}
		return out, nil
	})
}

// Route fetches a single route
func (c *Client) Route(ctx context.Context, routeID int) (models.Route, error) {
	key := fmt.Sprintf("route_%d", routeID)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (models.Route, error) {
		var resp routeResponse
		if err := c.getJSON(ctx, fmt.Sprintf("/v3/routes/%d", routeID), nil, &resp); err != nil {
			return models.Route{}, err
		}
		if resp.Route == nil {
			return models.Route{}, &models.NotFoundError{Resource: "route", ID: routeID}
		}
		return resp.Route.toModel(), nil
	})
}

// Directions lists the directions of a route
func (c *Client) Directions(ctx context.Context, routeID int) ([]models.Direction, error) {
	key := fmt.Sprintf("directions_route_%d", routeID)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]models.Direction, error) {
		var resp directionsResponse
		if err := c.getJSON(ctx, fmt.Sprintf("/v3/directions/route/%d", routeID), nil, &resp); err != nil {
			return nil, err
		}
		out := make([]models.Direction, 0, len(resp.Directions))
		for _, d := range resp.Directions {
			out = append(out, models.Direction{ID: d.DirectionID, Name: d.DirectionName, RouteID: d.RouteID})
		}
		return out, nil
	})
}

// StopSequences returns stop id to pattern sequence for one direction
func (c *Client) StopSequences(ctx context.Context, routeID int, rt models.RouteType, directionID int) (map[int]int, error) {
	q := url.Values{}
	q.Set("direction_id", strconv.Itoa(directionID))

	var resp patternResponse
	path := fmt.Sprintf("/v3/pattern/run/%d/route_type/%d", routeID, rt)
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	seq := make(map[int]int, len(resp.Departures))
	for _, d := range resp.Departures {
		if d.StopID > 0 && d.StopSequence > 0 {
			seq[d.StopID] = d.StopSequence
		}
	}
	return seq, nil
}

// Stops lists the stops of a route in one direction. Pattern sequences,
// when available, replace the sequences on the stop records.
func (c *Client) Stops(ctx context.Context, routeID int, rt models.RouteType, directionID int) ([]models.Stop, error) {
	key := fmt.Sprintf("stops_route_%d_%d_dir_%d", routeID, rt, directionID)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) ([]models.Stop, error) {
		q := url.Values{}
		q.Set("direction_id", strconv.Itoa(directionID))

		var resp stopsResponse
		path := fmt.Sprintf("/v3/stops/route/%d/route_type/%d", routeID, rt)
		if err := c.getJSON(ctx, path, q, &resp); err != nil {
			return nil, err
		}

		sequences, err := c.StopSequences(ctx, routeID, rt, directionID)
		if err != nil {
			c.log.Warn("pattern sequences unavailable, using stop records",
				"route_id", routeID, "direction_id", directionID, "error", err)
		}

		stops := make([]models.Stop, 0, len(resp.Stops))
		for _, s := range resp.Stops {
			stop := s.toModel(rt)
			if seq, ok := sequences[stop.ID]; ok {
				stop.RouteSuppliedSequence = seq
			}
			if stop.Lat == 0 && stop.Lng == 0 {
				stop = c.fillCoordinates(ctx, stop, rt)
			}
			stops = append(stops, stop)
		}

		c.log.Debug("fetched route stops",
			"route_id", routeID, "direction_id", directionID,
			"stops", len(stops), "pattern_sequences", len(sequences))
		return stops, nil
	})
}

func (c *Client) fillCoordinates(ctx context.Context, stop models.Stop, rt models.RouteType) models.Stop {
	details, err := c.StopDetails(ctx, stop.ID, rt)
	if err != nil {
		c.log.Warn("stop details unavailable", "stop_id", stop.ID, "error", err)
		return stop
	}
	stop.Lat, stop.Lng = details.Lat, details.Lng
	if stop.Name == "" {
		stop.Name = details.Name
	}
	return stop
}

// StopDetails fetches one stop with its coordinates
func (c *Client) StopDetails(ctx context.Context, stopID int, rt models.RouteType) (models.Stop, error) {
	key := fmt.Sprintf("stop_details_%d_%d", stopID, rt)
	return cache.Fetch(ctx, c.cache, key, func(ctx context.Context) (models.Stop, error) {
		var resp stopDetailsResponse
		if err := c.getJSON(ctx, fmt.Sprintf("/v3/stops/%d/route_type/%d", stopID, rt), nil, &resp); err != nil {
			return models.Stop{}, err
		}
		if resp.Stop == nil {
			return models.Stop{}, &models.NotFoundError{Resource: "stop", ID: stopID}
		}
		return resp.Stop.toModel(rt), nil
	})
}

// Journey plans a trip between two stops departing at date and clock
// ("2006-01-02", "15:04"). Results are not cached.
func (c *Client) Journey(ctx context.Context, fromStopID, toStopID int, rt models.RouteType, date, clock string) ([]models.Itinerary, error) {
	q := url.Values{}
	q.Set("date", date)
	q.Set("time", clock)

	var resp journeyResponse
	path := fmt.Sprintf("/v3/journey/from/%d/to/%d/route_type/%d", fromStopID, toStopID, rt)
	if err := c.getJSON(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	out := make([]models.Itinerary, 0, len(resp.Itineraries))
	for _, it := range resp.Itineraries {
		out = append(out, models.Itinerary{
			DurationMinutes: it.DurationMinutes,
			Departure:       it.DepartureTime,
			Arrival:         it.ArrivalTime,
		})
	}
	return out, nil
}
