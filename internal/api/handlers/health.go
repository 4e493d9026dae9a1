package handlers

import (
	"net/http"
	"time"
)

const version = "1.0.0"

type HealthHandler struct {
	startTime   time.Time
	transitMode string
}

// NewHealthHandler reports uptime and how the transit API is reached
// ("signed" or "relay").
func NewHealthHandler(transitMode string) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), transitMode: transitMode}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "OK",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      version,
		"uptime":       time.Since(h.startTime).String(),
		"transit_mode": h.transitMode,
	})
}
