package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/randytsao24/gigsahead/internal/api/handlers"
	"github.com/randytsao24/gigsahead/internal/config"
	"github.com/randytsao24/gigsahead/internal/logging"
)

// upstream calls are made one after another in the worst case, so requests
// get several HTTP timeouts worth of budget
const requestTimeoutFactor = 6

// Services bundles the data sources the handlers read from.
type Services struct {
	Catalog handlers.CatalogProvider
	Planner handlers.PlannerProvider
	Alerts  handlers.AlertProvider
	Logs    handlers.LogProvider
}

// NewRouter creates and configures the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, svc Services, log logging.Logger) http.Handler {
	transitMode := "signed"
	if cfg.UseRelay() {
		transitMode = "relay"
	}

	healthHandler := handlers.NewHealthHandler(transitMode)
	rootHandler := handlers.NewRootHandler()
	routeHandler := handlers.NewRouteHandler(svc.Catalog, svc.Planner, log)
	gigsHandler := handlers.NewGigsHandler(svc.Planner, log)
	alertsHandler := handlers.NewAlertsHandler(svc.Alerts, log)
	logsHandler := handlers.NewLogsHandler(svc.Logs)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recovery(log))
	r.Use(Logging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}))
	r.Use(Timeout(requestTimeout(cfg)))

	r.NotFound(rootHandler.NotFound)

	// Core routes
	r.Get("/", rootHandler.Index)
	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", rootHandler.Index)
		r.Get("/route-types", routeHandler.GetRouteTypes)
		r.Get("/routes", routeHandler.GetRoutes)
		r.Get("/routes/{routeId}/{routeType}/stops", routeHandler.GetRouteStops)
		r.Get("/routes/{routeId}/{routeType}/nearby-gigs", routeHandler.GetNearbyGigs)

		r.Get("/gigs", gigsHandler.GetTodaysGigs)
		r.Get("/gigs-ahead/{routeId}/{routeType}/{stopId}/{directionId}", gigsHandler.GetGigsAhead)

		r.Get("/alerts", alertsHandler.GetServiceAlerts)
		r.Get("/logs", logsHandler.GetLogs)
	})

	return r
}

func requestTimeout(cfg *config.Config) time.Duration {
	d := cfg.HTTPTimeout() * requestTimeoutFactor
	if d <= 0 {
		return 60 * time.Second
	}
	return d
}
