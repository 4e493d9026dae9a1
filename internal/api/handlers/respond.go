// Package handlers contains HTTP request handlers
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps the error taxonomy to a status code:
// invalid input 400, not found 404, upstream 502, anything else 500.
func writeError(w http.ResponseWriter, log logging.Logger, err error) {
	status, title := http.StatusInternalServerError, "Internal error"
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status, title = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, models.ErrNotFound):
		status, title = http.StatusNotFound, "Not found"
	case errors.Is(err, models.ErrUpstreamUnavailable):
		status, title = http.StatusBadGateway, "Upstream service unavailable"
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	} else {
		log.Debug("request rejected", "status", status, "error", err)
	}

	writeJSON(w, status, map[string]any{
		"error":   title,
		"message": err.Error(),
	})
}

// pathInt reads a numeric URL parameter
func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.InvalidInputError{Field: name, Value: raw}
	}
	return n, nil
}

// routeType parses a route type, rejecting values PTV does not define
func routeType(raw, field string) (models.RouteType, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return models.RouteTypeUnknown, &models.InvalidInputError{Field: field, Value: raw}
	}
	rt := models.RouteType(n)
	for _, known := range models.KnownRouteTypes {
		if rt == known {
			return rt, nil
		}
	}
	return models.RouteTypeUnknown, &models.InvalidInputError{Field: field, Value: raw}
}
