// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/matchpoint/pkg/logger"
)

const (
	liveWriteTimeout = 5 * time.Second
	liveReadLimit    = 512 // clients only send pings and close frames
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Spectator connections come from arbitrary origins; auth is handled
	// by the outer layers this service doesn't own.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleLive handles GET /matches/{id}/live: upgrades to WebSocket, sends
// the current snapshot immediately, then pushes every committed snapshot in
// sequence order until the client goes away.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()
	conn.SetReadLimit(liveReadLimit)

	connID := uuid.NewString()
	snap, ch, err := s.rooms.Subscribe(matchID, connID)
	if err != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown match"),
			time.Now().Add(liveWriteTimeout),
		)
		return
	}
	defer s.rooms.Unsubscribe(matchID, connID)

	log := logger.Named("live")
	log.Debug(r.Context(), "subscriber joined",
		logger.String("match_id", matchID),
		logger.String("conn_id", connID),
	)

	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	if err := conn.WriteJSON(snap); err != nil {
		return
	}

	// Reader loop exists only to observe the close frame.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return // hub stopped or unsubscribed
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
