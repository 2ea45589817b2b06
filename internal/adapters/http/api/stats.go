package api

import (
	"net/http"
)

// StatsProvider exposes queue, worker and job counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves a snapshot of the optimization service counters.
type StatsHandler struct {
	provider StatsProvider
}

func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.provider.GetStats()
	if stats == nil {
		stats = map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, stats)
}
