package server

import (
	"encoding/json"
	"net/http"
	"time"

	"orpheus/logger"
	"orpheus/storage"

	"github.com/gorilla/mux"
)

// BeginUploadRequest is the begin-upload body.
type BeginUploadRequest struct {
	Name              string `json:"name"`
	ExpectedSizeBytes int64  `json:"expectedSizeBytes"`
}

// BeginUploadHandler registers a track in the uploading state and, when
// object storage is configured, hands back a presigned PUT URL for the
// bytes.
func (h *APIHandler) BeginUploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, _ := identityFromContext(ctx)
	projectID := mux.Vars(r)["project_id"]

	var req BeginUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	track, err := h.tracks.BeginUpload(ctx, projectID, identityID, req.Name, req.ExpectedSizeBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	response := map[string]interface{}{"track": track}
	if storage.GetMinioClient() != nil {
		uploadURL, err := storage.PresignTrackUpload(ctx, h.cfg.MinioBucket, track.ID, 15*time.Minute)
		if err != nil {
			logger.Warn("failed to presign upload URL", logger.ErrorField(err))
		} else {
			response["uploadUrl"] = uploadURL.String()
		}
	}
	writeJSON(w, http.StatusCreated, response)
}

// CompleteUploadRequest is the complete-upload body.
type CompleteUploadRequest struct {
	ActualSizeBytes int64   `json:"actualSizeBytes"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// CompleteUploadHandler transitions uploading -> ready. When object storage
// is configured the stored object's size overrides the reported one.
func (h *APIHandler) CompleteUploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackID := mux.Vars(r)["track_id"]

	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	sizeBytes := req.ActualSizeBytes
	if storage.GetMinioClient() != nil {
		if storedSize, err := storage.StatTrackObject(ctx, h.cfg.MinioBucket, trackID); err == nil {
			sizeBytes = storedSize
		} else {
			logger.Warn("failed to stat stored track object", logger.ErrorField(err))
		}
	}

	if err := h.tracks.CompleteUpload(ctx, trackID, sizeBytes, req.DurationSeconds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "upload completed"})
}

// FailUploadRequest is the fail-upload body.
type FailUploadRequest struct {
	Reason string `json:"reason"`
}

// FailUploadHandler transitions uploading -> failed.
func (h *APIHandler) FailUploadHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackID := mux.Vars(r)["track_id"]

	var req FailUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	if err := h.tracks.FailUpload(ctx, trackID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "upload marked failed"})
}

// ListTracksHandler returns the project's tracks in upload order.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	tracks, err := h.tracks.ListTracks(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tracks": tracks, "total": len(tracks)})
}

// TogglePlaybackHandler toggles playback of one track.
func (h *APIHandler) TogglePlaybackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]
	trackID := mux.Vars(r)["track_id"]

	if err := h.tracks.TogglePlayback(ctx, projectID, trackID); err != nil {
		writeError(w, err)
		return
	}

	playing, err := h.tracks.PlayingTrack(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"playingTrackId": playing})
}

// DeleteTrackHandler deletes a track and its stored bytes.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, _ := identityFromContext(ctx)
	trackID := mux.Vars(r)["track_id"]

	if err := h.tracks.DeleteTrack(ctx, trackID, identityID); err != nil {
		writeError(w, err)
		return
	}

	if storage.GetMinioClient() != nil {
		if err := storage.RemoveTrackObject(ctx, h.cfg.MinioBucket, trackID); err != nil {
			logger.Warn("failed to remove stored track object", logger.ErrorField(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "track deleted"})
}
