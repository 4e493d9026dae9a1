// Package pipeline composes transit stops, gig listings and travel-time
// estimates into the route-ahead views served by the API.
package pipeline

import (
	"context"
	"time"

	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/proximity"
	"github.com/randytsao24/gigsahead/internal/traveltime"
)

// DefaultMaxConcurrency bounds concurrent travel-time estimates per request
const DefaultMaxConcurrency = 8

// TransitSource is the part of the transit API the pipeline reads
type TransitSource interface {
	Route(ctx context.Context, routeID int) (models.Route, error)
	Directions(ctx context.Context, routeID int) ([]models.Direction, error)
	Stops(ctx context.Context, routeID int, rt models.RouteType, directionID int) ([]models.Stop, error)
}

// EventSource lists gigs for a location and date range
type EventSource interface {
	GigsForDateRange(ctx context.Context, location string, from, to time.Time) ([]models.Event, error)
}

// TravelEstimator estimates minutes between two stops
type TravelEstimator interface {
	Estimate(ctx context.Context, fromStopID, toStopID int, rt models.RouteType) (traveltime.Estimate, error)
}

// Options tunes a Pipeline
type Options struct {
	// EventLocation is the gigs API location, e.g. "melbourne"
	EventLocation string
	// Location is the timezone "today" and event start times are read in
	Location       *time.Location
	MaxConcurrency int
	RadiusMeters   float64
	// ProblemRoutes lists routes whose failing direction is retried against
	// the route's other directions. RetryAllRoutes applies that to every route.
	ProblemRoutes  map[int]bool
	RetryAllRoutes bool
	Now            func() time.Time
}

// Pipeline answers route-ahead questions. It holds no per-request state.
type Pipeline struct {
	transit   TransitSource
	events    EventSource
	estimator TravelEstimator
	log       logging.Logger
	opts      Options
}

// New creates a pipeline, filling unset options with defaults
func New(transit TransitSource, events EventSource, estimator TravelEstimator, log logging.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.RadiusMeters <= 0 {
		opts.RadiusMeters = proximity.DefaultRadiusMeters
	}
	if opts.EventLocation == "" {
		opts.EventLocation = "melbourne"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		transit:   transit,
		events:    events,
		estimator: estimator,
		log:       log,
		opts:      opts,
	}
}

func (p *Pipeline) now() time.Time {
	return p.opts.Now().In(p.opts.Location)
}

func (p *Pipeline) retries(routeID int) bool {
	return p.opts.RetryAllRoutes || p.opts.ProblemRoutes[routeID]
}
