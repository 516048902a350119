package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"orpheus/core/auth"
	"orpheus/fault"
)

type contextKey string

const (
	ctxIdentityID contextKey = "identityId"
	ctxUsername   contextKey = "username"
)

// errorResponse is the API error envelope.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps a fault kind to an HTTP status and writes the envelope.
func writeError(w http.ResponseWriter, err error) {
	kind := fault.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "validation_error":
		status = http.StatusBadRequest
	case "permission_error":
		status = http.StatusForbidden
	case "not_found":
		status = http.StatusNotFound
	case "invalid_state", "already_member":
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: err.Error()})
}

// AuthMiddleware verifies the bearer token and injects the principal into
// the request context. The core trusts the identity as-is.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing bearer token"})
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "invalid token"})
			return
		}

		ctx := context.WithValue(r.Context(), ctxIdentityID, claims.IdentityID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		next(w, r.WithContext(ctx))
	}
}

// identityFromContext returns the authenticated principal.
func identityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxIdentityID).(string)
	return id, ok && id != ""
}
