// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// SubmissionDependencies defines the interface for submission processing.
type SubmissionDependencies interface {
	Submit(ctx context.Context, user, id string, order []string) (map[string]Updated, error)
}

// SubmissionsHandler handles ranking submissions.
type SubmissionsHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

// HandlePostSubmission handles POST /submissions requests.
func (h *SubmissionsHandler) HandlePostSubmission(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	// Generate the idempotency key here so the response can echo it.
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	updated, err := h.deps.Submit(r.Context(), req.User, req.ID, req.Order)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submissionResponse{
		Status:  "applied",
		ID:      req.ID,
		Updated: updated,
	})
}
