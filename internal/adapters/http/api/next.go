// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"
)

// NextDependencies defines the interface for selection operations.
type NextDependencies interface {
	SelectNext(ctx context.Context, user string) ([]NextItem, error)
}

// NextHandler handles selection requests.
type NextHandler struct {
	deps NextDependencies
}

// NewNextHandler creates a new selection handler.
func NewNextHandler(deps NextDependencies) *NextHandler {
	return &NextHandler{deps: deps}
}

// HandleGetNext handles GET /next/{user} requests.
func (h *NextHandler) HandleGetNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /next/
	user := strings.TrimPrefix(r.URL.Path, "/next/")
	if user == "" || strings.Contains(user, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	items, err := h.deps.SelectNext(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
