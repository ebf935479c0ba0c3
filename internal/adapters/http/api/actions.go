// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	service "github.com/okian/matchpoint/internal/app"
)

// actionRequest is the shared body for referee actions. All fields are
// optional except where a handler says otherwise.
type actionRequest struct {
	Team        int    `json:"team,omitempty"` // 1 or 2, points only
	ActionID    string `json:"action_id,omitempty"`
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// decodeAction tolerates an empty body so that bare POSTs work for
// start/undo/complete/cancel.
func decodeAction(r *http.Request) (actionRequest, error) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return actionRequest{}, err
	}
	return req, nil
}

// handleStart handles POST /matches/{id}/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := s.deps.StartMatch(r.Context(), r.PathValue("id"), req.SubmittedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: "ok", Snapshot: snap})
}

// handleRecordPoint handles POST /matches/{id}/points. A retried action_id
// is answered with the state the original attempt produced and status
// "duplicate".
func (s *Server) handleRecordPoint(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, replayed, err := s.deps.RecordPoint(r.Context(), r.PathValue("id"), req.Team, req.SubmittedBy, req.ActionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := "ok"
	if replayed {
		status = "duplicate"
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: status, Snapshot: snap})
}

// handleUndo handles POST /matches/{id}/undo. An empty current set is a
// benign no-op, answered with the unchanged snapshot.
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	matchID := r.PathValue("id")
	snap, err := s.deps.UndoLastPoint(r.Context(), matchID, req.SubmittedBy)
	if err != nil {
		if errors.Is(err, service.ErrNothingToUndo) {
			cur, serr := s.deps.Snapshot(r.Context(), matchID)
			if serr != nil {
				writeServiceError(w, serr)
				return
			}
			writeJSON(w, http.StatusOK, actionResponse{Status: "noop", Snapshot: cur})
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: "ok", Snapshot: snap})
}

// handleCompleteSet handles POST /matches/{id}/complete-set.
func (s *Server) handleCompleteSet(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := s.deps.CompleteSet(r.Context(), r.PathValue("id"), req.SubmittedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: "ok", Snapshot: snap})
}

// handleCompleteMatch handles POST /matches/{id}/complete.
func (s *Server) handleCompleteMatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := s.deps.CompleteMatch(r.Context(), r.PathValue("id"), req.SubmittedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: "ok", Snapshot: snap})
}

// handleCancel handles POST /matches/{id}/cancel.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	req, err := decodeAction(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := s.deps.CancelMatch(r.Context(), r.PathValue("id"), req.SubmittedBy)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Status: "ok", Snapshot: snap})
}
