// Package traveltime estimates in-vehicle minutes between two stops
package traveltime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/randytsao24/gigsahead/internal/geo"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
)

// detourFactor inflates straight-line distance to approximate track distance
const detourFactor = 1.2

// speedKmh is the assumed average speed per mode
var speedKmh = map[models.RouteType]float64{
	models.RouteTypeTrain:        40,
	models.RouteTypeTram:         20,
	models.RouteTypeBus:          25,
	models.RouteTypeVLine:        40,
	models.RouteTypeNightBus:     25,
	models.RouteTypeAirportCoach: 80,
}

const defaultSpeedKmh = 25

// fixedMinutes is the last-resort estimate per mode. These are rough
// figures, not measurements.
var fixedMinutes = map[models.RouteType]float64{
	models.RouteTypeTrain:        5,
	models.RouteTypeTram:         3,
	models.RouteTypeBus:          4,
	models.RouteTypeVLine:        10,
	models.RouteTypeNightBus:     4,
	models.RouteTypeAirportCoach: 15,
}

const defaultFixedMinutes = 4

// TransitSource is the subset of the transit API the estimator needs
type TransitSource interface {
	Journey(ctx context.Context, fromStopID, toStopID int, routeType models.RouteType, date, clock string) ([]models.Itinerary, error)
	StopDetails(ctx context.Context, stopID int, routeType models.RouteType) (models.Stop, error)
}

// Estimate is a travel time and how it was obtained
type Estimate struct {
	Minutes float64                 `json:"minutes"`
	Source  models.TravelTimeSource `json:"source"`
}

// Fallback reports whether the estimate did not come from journey planning
func (e Estimate) Fallback() bool {
	return e.Source != models.TravelTimeJourney
}

// Estimator tries journey planning, then geometry, then a fixed figure
type Estimator struct {
	source TransitSource
	log    logging.Logger
	loc    *time.Location
	now    func() time.Time
}

// Option configures an Estimator
type Option func(*Estimator)

// WithClock overrides the time source used for journey queries
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) { e.now = now }
}

// NewEstimator creates an estimator. Journey queries use the local time in loc.
func NewEstimator(source TransitSource, loc *time.Location, log logging.Logger, opts ...Option) *Estimator {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logging.Nop()
	}
	e := &Estimator{source: source, log: log, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns minutes from one stop to another. Upstream failures are
// absorbed by falling back; only non-positive stop ids are an error.
func (e *Estimator) Estimate(ctx context.Context, fromStopID, toStopID int, routeType models.RouteType) (Estimate, error) {
	if fromStopID <= 0 {
		return Estimate{}, &models.InvalidInputError{Field: "from stop id", Value: fromStopID}
	}
	if toStopID <= 0 {
		return Estimate{}, &models.InvalidInputError{Field: "to stop id", Value: toStopID}
	}

	minutes, err := e.fromJourney(ctx, fromStopID, toStopID, routeType)
	if err == nil {
		return Estimate{Minutes: minutes, Source: models.TravelTimeJourney}, nil
	}
	e.log.Warn("journey planning unavailable, using geometric estimate",
		"from_stop", fromStopID, "to_stop", toStopID, "route_type", int(routeType), "error", err)

	minutes, err = e.fromGeometry(ctx, fromStopID, toStopID, routeType)
	if err == nil {
		return Estimate{Minutes: minutes, Source: models.TravelTimeGeometric}, nil
	}
	e.log.Warn("stop coordinates unavailable, using fixed estimate",
		"from_stop", fromStopID, "to_stop", toStopID, "route_type", int(routeType), "error", err)

	return Estimate{Minutes: FixedMinutes(routeType), Source: models.TravelTimeFixed}, nil
}

func (e *Estimator) fromJourney(ctx context.Context, from, to int, rt models.RouteType) (float64, error) {
	now := e.now().In(e.loc)
	itineraries, err := e.source.Journey(ctx, from, to, rt, now.Format("2006-01-02"), now.Format("15:04"))
	if err != nil {
		return 0, err
	}
	if len(itineraries) == 0 {
		return 0, errors.New("no itineraries returned")
	}
	d := itineraries[0].DurationMinutes
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("unusable itinerary duration %v", d)
	}
	return d, nil
}

func (e *Estimator) fromGeometry(ctx context.Context, from, to int, rt models.RouteType) (float64, error) {
	a, err := e.source.StopDetails(ctx, from, rt)
	if err != nil {
		return 0, fmt.Errorf("stop %d: %w", from, err)
	}
	b, err := e.source.StopDetails(ctx, to, rt)
	if err != nil {
		return 0, fmt.Errorf("stop %d: %w", to, err)
	}
	for _, s := range []models.Stop{a, b} {
		if !hasCoordinates(s) {
			return 0, fmt.Errorf("stop %d has no coordinates", s.ID)
		}
	}
	meters := geo.Distance(geo.Point{Lat: a.Lat, Lng: a.Lng}, geo.Point{Lat: b.Lat, Lng: b.Lng})
	if math.IsNaN(meters) || math.IsInf(meters, 0) {
		return 0, errors.New("stop coordinates are not numeric")
	}
	return GeometricMinutes(meters, rt), nil
}

// hasCoordinates reports whether a stop carries a usable position. The
// transit API leaves both fields zero when it has no GPS block.
func hasCoordinates(s models.Stop) bool {
	return s.Lat != 0 || s.Lng != 0
}

// GeometricMinutes converts a straight-line distance to whole minutes at the
// mode's assumed speed, never less than one.
func GeometricMinutes(meters float64, rt models.RouteType) float64 {
	speed, ok := speedKmh[rt]
	if !ok {
		speed = defaultSpeedKmh
	}
	minutes := math.Ceil(geo.MetersToKilometers(meters) / speed * 60 * detourFactor)
	return math.Max(minutes, 1)
}

// FixedMinutes is the per-mode last-resort estimate
func FixedMinutes(rt models.RouteType) float64 {
	if m, ok := fixedMinutes[rt]; ok {
		return m
	}
	return defaultFixedMinutes
}
