// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/matchpoint/internal/domain/model"
	"github.com/okian/matchpoint/pkg/metrics"
)

// syncResponse answers GET /matches/{id}/sync. When the caller is current
// the snapshot is omitted and changed is false — the cheap no-change signal.
type syncResponse struct {
	Changed        bool            `json:"changed"`
	Sequence       uint64          `json:"sequence_number"`
	PollIntervalMS int64           `json:"poll_interval_ms"`
	Snapshot       *model.Snapshot `json:"snapshot,omitempty"`
}

// handleSync handles GET /matches/{id}/sync?since=N.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("since must be a non-negative integer"))
			return
		}
		since = parsed
	}

	snap, changed, err := s.syncer.Reconcile(r.Context(), r.PathValue("id"), since)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RecordReconcile(!changed)

	resp := syncResponse{
		Changed:        changed,
		Sequence:       snap.Sequence,
		PollIntervalMS: s.syncer.PollInterval().Milliseconds(),
	}
	if changed {
		resp.Snapshot = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}
