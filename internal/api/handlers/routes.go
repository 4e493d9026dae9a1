package handlers

import (
	"net/http"

	"github.com/randytsao24/gigsahead/internal/logging"
)

type RouteHandler struct {
	catalog CatalogProvider
	planner PlannerProvider
	log     logging.Logger
}

func NewRouteHandler(catalog CatalogProvider, planner PlannerProvider, log logging.Logger) *RouteHandler {
	return &RouteHandler{catalog: catalog, planner: planner, log: log}
}

// GetRouteTypes lists transport modes
func (h *RouteHandler) GetRouteTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.RouteTypes(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"route_types": types,
		"count":       len(types),
	})
}

// GetRoutes lists the routes of the mode given by ?route_type=
func (h *RouteHandler) GetRoutes(w http.ResponseWriter, r *http.Request) {
	rt, err := routeType(r.URL.Query().Get("route_type"), "route_type")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	routes, err := h.catalog.RoutesByType(r.Context(), rt)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"route_type": rt,
		"routes":     routes,
		"count":      len(routes),
	})
}

// GetRouteStops returns each direction's stops in travel order
func (h *RouteHandler) GetRouteStops(w http.ResponseWriter, r *http.Request) {
	routeID, err := pathInt(r, "routeId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rt, err := routeType(routeTypeParam(r), "routeType")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.planner.RouteStops(r.Context(), routeID, rt)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"route":   result,
	})
}

// GetNearbyGigs returns today's gigs grouped by the route stop they are near
func (h *RouteHandler) GetNearbyGigs(w http.ResponseWriter, r *http.Request) {
	routeID, err := pathInt(r, "routeId")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	rt, err := routeType(routeTypeParam(r), "routeType")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.planner.NearbyGigs(r.Context(), routeID, rt)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"route_id":  result.RouteID,
		"route":     result.RouteName,
		"stops":     result.Stops,
		"gig_count": result.GigCount,
	})
}
