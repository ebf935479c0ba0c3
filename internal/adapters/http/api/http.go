// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	service "github.com/okian/matchpoint/internal/app"
	"github.com/okian/matchpoint/internal/domain/model"
)

// Dependencies required by the HTTP handlers. An interface bundle keeps the
// handler layer loosely coupled to the match service implementation.
type Dependencies interface {
	CreateMatch(ctx context.Context, spec service.MatchSpec) (model.Snapshot, error)
	StartMatch(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error)
	RecordPoint(ctx context.Context, matchID string, team int, submittedBy, actionID string) (model.Snapshot, bool, error)
	UndoLastPoint(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error)
	CompleteSet(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error)
	CompleteMatch(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error)
	CancelMatch(ctx context.Context, matchID, submittedBy string) (model.Snapshot, error)
	Snapshot(ctx context.Context, matchID string) (model.Snapshot, error)
	ListMatches(ctx context.Context) []model.Snapshot
	Events(ctx context.Context, matchID string) ([]model.ScoreEvent, error)
}

// Syncer serves resync for push and poll clients.
type Syncer interface {
	Reconcile(ctx context.Context, matchID string, lastKnown uint64) (model.Snapshot, bool, error)
	PollInterval() time.Duration
}

// Rooms is how live connections join and leave match rooms.
type Rooms interface {
	Subscribe(matchID, connID string) (model.Snapshot, <-chan model.Snapshot, error)
	Unsubscribe(matchID, connID string)
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the scoring API.
type Server struct {
	deps   Dependencies
	syncer Syncer
	rooms  Rooms
	stats  StatsProvider
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, syncer Syncer, rooms Rooms, stats StatsProvider) *Server {
	return &Server{
		deps:   deps,
		syncer: syncer,
		rooms:  rooms,
		stats:  stats,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.handleStats, "stats"))

	mux.HandleFunc("POST /matches", MetricsMiddleware(s.handleCreateMatch, "create_match"))
	mux.HandleFunc("GET /matches", MetricsMiddleware(s.handleListMatches, "list_matches"))
	mux.HandleFunc("GET /matches/{id}", MetricsMiddleware(s.handleGetMatch, "get_match"))
	mux.HandleFunc("GET /matches/{id}/events", MetricsMiddleware(s.handleGetEvents, "get_events"))

	mux.HandleFunc("POST /matches/{id}/start", MetricsMiddleware(s.handleStart, "start_match"))
	mux.HandleFunc("POST /matches/{id}/points", MetricsMiddleware(s.handleRecordPoint, "record_point"))
	mux.HandleFunc("POST /matches/{id}/undo", MetricsMiddleware(s.handleUndo, "undo_point"))
	mux.HandleFunc("POST /matches/{id}/complete-set", MetricsMiddleware(s.handleCompleteSet, "complete_set"))
	mux.HandleFunc("POST /matches/{id}/complete", MetricsMiddleware(s.handleCompleteMatch, "complete_match"))
	mux.HandleFunc("POST /matches/{id}/cancel", MetricsMiddleware(s.handleCancel, "cancel_match"))

	mux.HandleFunc("GET /matches/{id}/sync", MetricsMiddleware(s.handleSync, "sync"))
	// The live route upgrades to WebSocket and hijacks the connection, so
	// it skips the metrics response wrapper.
	mux.HandleFunc("GET /matches/{id}/live", s.handleLive)
}

// actionResponse is the envelope for every mutating operation.
// Status is "ok", "noop" (benign no-change), or "duplicate" (idempotent
// replay of a retried action id).
type actionResponse struct {
	Status   string         `json:"status"`
	Snapshot model.Snapshot `json:"snapshot"`
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

// writeServiceError translates service sentinels to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrMatchNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err)
	case errors.Is(err, service.ErrStateConflict):
		writeError(w, http.StatusConflict, "state_conflict", err)
	case errors.Is(err, service.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "concurrency_conflict", err)
	case errors.Is(err, service.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, "persistence_error", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
