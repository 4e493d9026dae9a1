package handlers

import "net/http"

type LogsHandler struct {
	source LogProvider
}

func NewLogsHandler(source LogProvider) *LogsHandler {
	return &LogsHandler{source: source}
}

// GetLogs returns retained log entries, oldest first
func (h *LogsHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	entries := h.source.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"count": len(entries),
	})
}
