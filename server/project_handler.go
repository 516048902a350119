package server

import (
	"encoding/json"
	"net/http"

	"orpheus/logger"
	"orpheus/model"

	"github.com/gorilla/mux"
)

// CreateProjectRequest is the create-project body.
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreateProjectHandler creates a project owned by the caller.
func (h *APIHandler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, ok := identityFromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing identity"})
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	project, err := h.registry.CreateProject(ctx, identityID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

// ListProjectsHandler returns the caller's projects in creation order.
func (h *APIHandler) ListProjectsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, ok := identityFromContext(ctx)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "missing identity"})
		return
	}

	projects := h.registry.ListProjects(ctx, identityID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProjectHandler returns one project with membership.
func (h *APIHandler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	project, err := h.registry.GetProject(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// RenameProjectRequest is the rename body.
type RenameProjectRequest struct {
	Name string `json:"name"`
}

// RenameProjectHandler renames a project. Owner only.
func (h *APIHandler) RenameProjectHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, _ := identityFromContext(ctx)
	projectID := mux.Vars(r)["project_id"]

	var req RenameProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	if err := h.registry.RenameProject(ctx, projectID, identityID, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "project renamed"})
}

// InviteCollaboratorRequest is the invite body.
type InviteCollaboratorRequest struct {
	IdentityID string `json:"identityId"`
}

// InviteCollaboratorHandler adds a collaborator to a project.
func (h *APIHandler) InviteCollaboratorHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, _ := identityFromContext(ctx)
	projectID := mux.Vars(r)["project_id"]

	var req InviteCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	if err := h.registry.InviteCollaborator(ctx, projectID, identityID, req.IdentityID); err != nil {
		logger.Warn("invite rejected",
			logger.String("projectId", projectID),
			logger.String("requester", identityID),
			logger.ErrorField(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "collaborator invited"})
}

// GetSplitHandler returns the project's current ownership split.
func (h *APIHandler) GetSplitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	split, err := h.ledger.GetSplit(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projectId": projectID, "entries": split})
}

// RebalanceRequest maps identities to decimal percentages.
type RebalanceRequest struct {
	Split map[string]float64 `json:"split"`
}

// RebalanceHandler atomically replaces the project's split. Owner only.
func (h *APIHandler) RebalanceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identityID, _ := identityFromContext(ctx)
	projectID := mux.Vars(r)["project_id"]

	var req RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	newSplit := make(map[string]int64, len(req.Split))
	for id, percent := range req.Split {
		newSplit[id] = model.PercentToBasisPoints(percent)
	}

	if err := h.ledger.Rebalance(ctx, projectID, identityID, newSplit); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "split rebalanced"})
}

// RevenueShareHandler previews the distribution of a revenue amount.
func (h *APIHandler) RevenueShareHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	var req struct {
		TotalRevenue int64 `json:"totalRevenue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: "invalid request body"})
		return
	}

	amounts, err := h.ledger.ComputeRevenueShare(ctx, projectID, req.TotalRevenue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projectId":    projectID,
		"totalRevenue": req.TotalRevenue,
		"amounts":      amounts,
	})
}

// SplitAuditHandler returns the rebalance audit trail.
func (h *APIHandler) SplitAuditHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := mux.Vars(r)["project_id"]

	audits, err := h.ledger.AuditLog(ctx, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projectId": projectID, "audits": audits})
}
