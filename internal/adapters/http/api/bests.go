// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// BestsDependencies defines the interface for personal bests operations.
type BestsDependencies interface {
	PersonalBests(ctx context.Context, user string) (highest, lowest []Entry, err error)
}

// BestsHandler handles personal bests requests.
type BestsHandler struct {
	deps BestsDependencies
}

// NewBestsHandler creates a new personal bests handler.
func NewBestsHandler(deps BestsDependencies) *BestsHandler {
	return &BestsHandler{deps: deps}
}

// HandleGetBests handles GET /bests/{user} requests.
func (h *BestsHandler) HandleGetBests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /bests/
	user := strings.TrimPrefix(r.URL.Path, "/bests/")
	if user == "" || strings.Contains(user, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	highest, lowest, err := h.deps.PersonalBests(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bestsResponse{Highest: highest, Lowest: lowest})
}
