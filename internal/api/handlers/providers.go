package handlers

import (
	"context"

	"github.com/randytsao24/gigsahead/internal/alerts"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/pipeline"
)

// CatalogProvider lists transport modes and routes.
type CatalogProvider interface {
	RouteTypes(ctx context.Context) ([]models.RouteTypeInfo, error)
	RoutesByType(ctx context.Context, rt models.RouteType) ([]models.Route, error)
}

// PlannerProvider answers the route and gig views.
type PlannerProvider interface {
	RouteStops(ctx context.Context, routeID int, rt models.RouteType) (*pipeline.RouteStopsResult, error)
	NearbyGigs(ctx context.Context, routeID int, rt models.RouteType) (*pipeline.NearbyGigsResult, error)
	GigsAhead(ctx context.Context, req pipeline.GigsAheadRequest) (*pipeline.GigsAheadResult, error)
	TodaysGigs(ctx context.Context) ([]models.Event, error)
}

// AlertProvider abstracts the service alerts data source.
type AlertProvider interface {
	HasFeed(rt models.RouteType) bool
	Alerts(ctx context.Context, rt models.RouteType, routes []string) ([]alerts.Alert, error)
}

// LogProvider exposes recently retained log entries.
type LogProvider interface {
	Entries() []logging.Entry
}
