// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]interface{}
}

// GroupStatsDependencies defines the interface for name-group aggregates.
type GroupStatsDependencies interface {
	GroupStats(ctx context.Context) ([]GroupStat, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
	groups        GroupStatsDependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider, groups GroupStatsDependencies) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider, groups: groups}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	stats := h.statsProvider.GetStats(r.Context())
	_ = json.NewEncoder(w).Encode(stats)
}

// HandleGroupStats handles GET /stats/groups requests.
func (h *StatsHandler) HandleGroupStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats, err := h.groups.GroupStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
