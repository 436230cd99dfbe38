// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/mediarank/internal/app"
	"github.com/okian/mediarank/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SelectNext returns the next set of items to present to user.
	SelectNext(ctx context.Context, user string) ([]NextItem, error)

	// Submit applies one ranking submission and returns per-item updates.
	Submit(ctx context.Context, user, id string, order []string) (map[string]Updated, error)

	// Read operations expose rating data.
	Leaderboard(ctx context.Context, user string, limit int) ([]Entry, error)
	PersonalBests(ctx context.Context, user string) (highest, lowest []Entry, err error)
	GroupStats(ctx context.Context) ([]GroupStat, error)

	// RegisterMedia adds items to the catalog.
	RegisterMedia(ctx context.Context, mediaIDs []string) error
}

// Read shapes mirrored from the domain layer.
type (
	Entry     = types.Entry
	NextItem  = types.NextItem
	Updated   = types.Updated
	GroupStat = types.GroupStat
)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	nextHandler        *NextHandler
	submissionsHandler *SubmissionsHandler
	leaderboardHandler *LeaderboardHandler
	bestsHandler       *BestsHandler
	mediaHandler       *MediaHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider, deps),
		nextHandler:        NewNextHandler(deps),
		submissionsHandler: NewSubmissionsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		bestsHandler:       NewBestsHandler(deps),
		mediaHandler:       NewMediaHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats/groups", MetricsMiddleware(s.statsHandler.HandleGroupStats, "stats_groups"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/submissions", MetricsMiddleware(s.submissionsHandler.HandlePostSubmission, "submissions"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/media", MetricsMiddleware(s.mediaHandler.HandlePostMedia, "media"))
	mux.HandleFunc("/next/", MetricsMiddleware(s.nextHandler.HandleGetNext, "next"))
	mux.HandleFunc("/bests/", MetricsMiddleware(s.bestsHandler.HandleGetBests, "bests"))
}

// submissionRequest mirrors the wire schema for POST /submissions.
type submissionRequest struct {
	ID    string   `json:"id,omitempty"`
	User  string   `json:"user"`
	Order []string `json:"order"`
}

func (s submissionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.User) == "":
		return errors.New("missing user")
	case len(s.Order) < 2:
		return errors.New("order needs at least 2 items")
	}
	return nil
}

// submissionResponse acknowledges an applied submission.
type submissionResponse struct {
	Status  string             `json:"status"`
	ID      string             `json:"id,omitempty"`
	Updated map[string]Updated `json:"updated,omitempty"`
}

// bestsResponse carries both ends of a user's personal ladder.
type bestsResponse struct {
	Highest []Entry `json:"highest"`
	Lowest  []Entry `json:"lowest"`
}

// mediaRequest mirrors the wire schema for POST /media.
type mediaRequest struct {
	Media []string `json:"media"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service error kinds to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrDuplicate):
		// Idempotent replays acknowledge rather than fail.
		writeJSON(w, http.StatusOK, submissionResponse{Status: "duplicate"})
	case errors.Is(err, service.ErrNoMedia):
		writeError(w, http.StatusNotFound, "no_media", err)
	case errors.Is(err, service.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "retry_later", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
