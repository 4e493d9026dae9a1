package handlers

import (
	"net/http"
	"strings"

	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
)

type AlertsHandler struct {
	alerts AlertProvider
	log    logging.Logger
}

func NewAlertsHandler(alerts AlertProvider, log logging.Logger) *AlertsHandler {
	return &AlertsHandler{alerts: alerts, log: log}
}

// GetServiceAlerts returns active service alerts for ?route_type=,
// optionally filtered by ?routes=a,b. Modes without a feed are 404.
func (h *AlertsHandler) GetServiceAlerts(w http.ResponseWriter, r *http.Request) {
	rt, err := routeType(r.URL.Query().Get("route_type"), "route_type")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if !h.alerts.HasFeed(rt) {
		writeError(w, h.log, &models.NotFoundError{Resource: "alert feed for route type", ID: int(rt)})
		return
	}

	var routes []string
	for _, id := range strings.Split(r.URL.Query().Get("routes"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			routes = append(routes, id)
		}
	}

	active, err := h.alerts.Alerts(r.Context(), rt, routes)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"alerts":  active,
		"count":   len(active),
	})
}
