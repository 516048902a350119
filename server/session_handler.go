package server

import (
	"net/http"
	"time"

	"orpheus/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ListPresentHandler returns who is currently present in a project.
func (h *APIHandler) ListPresentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	if _, err := h.registry.GetProject(ctx, projectID); err != nil {
		writeError(w, err)
		return
	}
	present := h.sessions.ListPresent(ctx, projectID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"projectId": projectID, "present": present})
}

// CurrentlyPlayingHandler returns the project's playing track id, if any.
func (h *APIHandler) CurrentlyPlayingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	playing, err := h.sessions.CurrentlyPlaying(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"projectId": projectID, "playingTrackId": playing})
}

// PresenceSocketHandler upgrades to a WebSocket whose lifetime is the
// collaborator's presence: connect marks present, pings and any inbound
// frames are heartbeats, disconnect marks absent.
func (h *APIHandler) PresenceSocketHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, ok := identityFromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing identity"})
		return
	}
	projectID := mux.Vars(r)["project_id"]

	project, err := h.registry.GetProject(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	isMember := false
	for _, c := range project.Collaborators {
		if c == identityID {
			isMember = true
			break
		}
	}
	if !isMember {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "permission_error", Message: "not a collaborator"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("presence websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	h.sessions.MarkPresent(ctx, projectID, identityID)
	defer h.sessions.MarkAbsent(ctx, projectID, identityID)

	logger.Info("presence socket connected",
		logger.String("projectId", projectID),
		logger.String("identity", identityID))

	conn.SetPongHandler(func(string) error {
		h.sessions.MarkPresent(ctx, projectID, identityID)
		return nil
	})

	// Ping on a fraction of the presence TTL so clients keep the heartbeat
	// alive without their own timers.
	pingInterval := h.presenceTTL / 3
	if pingInterval <= 0 {
		pingInterval = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
	defer close(done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		// Any inbound frame counts as a heartbeat.
		h.sessions.MarkPresent(ctx, projectID, identityID)
	}
}
