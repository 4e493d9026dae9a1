package handlers

import (
	"net/http"
)

type RootHandler struct{}

func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "gigsahead",
		"description": "Live music near the stops ahead on Melbourne public transport",
		"version":     version,
		"endpoints": []string{
			"GET /health",
			"GET /api",
			"GET /api/route-types",
			"GET /api/routes?route_type={type}",
			"GET /api/routes/{routeId}/{routeType}/stops",
			"GET /api/routes/{routeId}/{routeType}/nearby-gigs",
			"GET /api/gigs",
			"GET /api/gigs-ahead/{routeId}/{routeType}/{stopId}/{directionId}",
			"GET /api/alerts?route_type={type}&routes={a,b}",
			"GET /api/logs",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check /api for available routes",
	})
}
