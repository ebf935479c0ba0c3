// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/matchpoint/internal/app"
	"github.com/okian/matchpoint/internal/domain/model"
)

// createMatchRequest mirrors the POST /matches body.
type createMatchRequest struct {
	MatchID        string     `json:"match_id,omitempty"`
	TournamentID   string     `json:"tournament_id,omitempty"`
	Team1          model.Team `json:"team1"`
	Team2          model.Team `json:"team2"`
	ScoringMode    string     `json:"scoring_mode,omitempty"`
	PointsToWinSet int        `json:"points_to_win_set,omitempty"`
	TotalSets      int        `json:"total_sets,omitempty"`
}

func (r createMatchRequest) validate() error {
	switch {
	case strings.TrimSpace(r.Team1.Name) == "":
		return errors.New("missing team1.name")
	case strings.TrimSpace(r.Team2.Name) == "":
		return errors.New("missing team2.name")
	case r.PointsToWinSet < 0:
		return errors.New("points_to_win_set must not be negative")
	case r.TotalSets < 0:
		return errors.New("total_sets must not be negative")
	case r.TotalSets > 0 && r.TotalSets%2 == 0:
		return errors.New("total_sets must be odd for a best-of-N match")
	}
	return nil
}

// handleCreateMatch handles POST /matches.
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := s.deps.CreateMatch(r.Context(), service.MatchSpec{
		ID:             req.MatchID,
		TournamentID:   req.TournamentID,
		Team1:          req.Team1,
		Team2:          req.Team2,
		Mode:           model.ScoringMode(req.ScoringMode),
		PointsToWinSet: req.PointsToWinSet,
		TotalSets:      req.TotalSets,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, actionResponse{Status: "ok", Snapshot: snap})
}

// handleListMatches handles GET /matches.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.ListMatches(r.Context()))
}

// handleGetMatch handles GET /matches/{id}.
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetEvents handles GET /matches/{id}/events: the audit trail.
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.deps.Events(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
