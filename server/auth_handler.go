package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"orpheus/core/auth"
	"orpheus/logger"
	"orpheus/model"

	"github.com/google/uuid"
)

// RegisterRequest is the register body.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler creates a user and returns a token.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "username and password are required"})
		return
	}

	if h.users == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage_error", Message: "user storage not configured"})
		return
	}

	existing, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error", Message: "failed to check username"})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "validation_error", Message: "username already taken"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error", Message: "failed to hash password"})
		return
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		logger.Error("failed to create user", logger.ErrorField(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error", Message: "failed to create user"})
		return
	}

	h.writeToken(w, user)
}

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler verifies credentials and returns a token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	if h.users == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage_error", Message: "user storage not configured"})
		return
	}

	user, err := h.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error", Message: "failed to query user"})
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "invalid credentials"})
		return
	}

	h.writeToken(w, user)
}

// DevTokenHandler issues a throwaway token for local development.
func (h *APIHandler) DevTokenHandler(w http.ResponseWriter, r *http.Request) {
	identityID := r.URL.Query().Get("identity")
	if identityID == "" {
		identityID = "dev-" + uuid.NewString()[:8]
	}

	token, err := auth.IssueToken(h.cfg.JWTSecret, identityID, identityID, h.cfg.JWTExpiry)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error", Message: "failed to issue token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"type":       "Bearer",
		"expires_in": int(h.cfg.JWTExpiry.Seconds()),
		"identityId": identityID,
	})
}

func (h *APIHandler) writeToken(w http.ResponseWriter, user *model.User) {
	token, err := auth.IssueToken(h.cfg.JWTSecret, user.ID, user.Username, h.cfg.JWTExpiry)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_error", Message: "failed to issue token"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"type":       "Bearer",
		"expires_in": int(h.cfg.JWTExpiry.Seconds()),
		"identityId": user.ID,
		"username":   user.Username,
	})
}
