// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MediaDependencies defines the interface for catalog registration.
type MediaDependencies interface {
	RegisterMedia(ctx context.Context, mediaIDs []string) error
}

// MediaHandler handles media registration requests.
type MediaHandler struct {
	deps MediaDependencies
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(deps MediaDependencies) *MediaHandler {
	return &MediaHandler{deps: deps}
}

// HandlePostMedia handles POST /media requests.
func (h *MediaHandler) HandlePostMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req mediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(req.Media) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: no media ids", ErrBadRequest))
		return
	}

	if err := h.deps.RegisterMedia(r.Context(), req.Media); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":     "registered",
		"registered": len(req.Media),
	})
}
