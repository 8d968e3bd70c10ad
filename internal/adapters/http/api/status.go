package api

import "net/http"

// StatusHandler handles status requests.
type StatusHandler struct {
	statsProvider StatsProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(statsProvider StatsProvider) *StatusHandler {
	return &StatusHandler{statsProvider: statsProvider}
}

// HandleStatus handles GET /api/v1/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.Stats())
}
