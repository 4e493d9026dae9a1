package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/pipeline"
)

type GigsHandler struct {
	planner PlannerProvider
	log     logging.Logger
}

func NewGigsHandler(planner PlannerProvider, log logging.Logger) *GigsHandler {
	return &GigsHandler{planner: planner, log: log}
}

// GetTodaysGigs lists today's gigs by start time
func (h *GigsHandler) GetTodaysGigs(w http.ResponseWriter, r *http.Request) {
	events, err := h.planner.TodaysGigs(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"gigs":    events,
		"count":   len(events),
	})
}

// GetGigsAhead returns gigs near the stops after the rider's current stop.
// An empty list is a normal answer; upstream failures are 502.
func (h *GigsHandler) GetGigsAhead(w http.ResponseWriter, r *http.Request) {
	var req pipeline.GigsAheadRequest
	var err error

	if req.RouteID, err = pathInt(r, "routeId"); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.RouteType, err = routeType(routeTypeParam(r), "routeType"); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.StopID, err = pathInt(r, "stopId"); err != nil {
		writeError(w, h.log, err)
		return
	}
	if req.DirectionID, err = pathInt(r, "directionId"); err != nil {
		writeError(w, h.log, err)
		return
	}

	result, err := h.planner.GigsAhead(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"route_id":               result.RouteID,
		"route_type":             result.RouteType,
		"requested_direction_id": result.RequestedDirectionID,
		"actual_direction_id":    result.ActualDirectionID,
		"direction_substituted":  result.DirectionSubstituted(),
		"current_stop":           result.CurrentStop,
		"stops_ahead":            result.StopsAhead,
		"fallback_estimates":     result.FallbackEstimates,
		"unknown_reachability":   result.UnknownReachability,
		"events":                 result.Events,
		"count":                  len(result.Events),
	})
}

func routeTypeParam(r *http.Request) string {
	return chi.URLParam(r, "routeType")
}
