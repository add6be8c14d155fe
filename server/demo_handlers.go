package server

import (
	"encoding/json"
	"net/http"

	"demodesk/core/review"

	"github.com/gorilla/mux"
)

// GetDemosHandler returns the combined demo listing.
// GET /api/demos
func (h *APIHandler) GetDemosHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviews.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type actionRequest struct {
	Action string `json:"action"`
}

// AssistantActionHandler applies an assistant workflow action to a demo.
// POST /api/demos/{id}/assistant-action  body {action: like|reject|undo_reject}
func (h *APIHandler) AssistantActionHandler(w http.ResponseWriter, r *http.Request) {
	h.demoAction(w, r, review.RoleAssistant)
}

// OwnerActionHandler applies an owner workflow action to a demo.
// POST /api/demos/{id}/owner-action  body {action: approve|reject|undo_reject|like}
func (h *APIHandler) OwnerActionHandler(w http.ResponseWriter, r *http.Request) {
	h.demoAction(w, r, review.RoleOwner)
}

func (h *APIHandler) demoAction(w http.ResponseWriter, r *http.Request, role review.Role) {
	// The route role must match the authenticated staff role; an owner
	// may also act through the assistant route.
	staffRole, err := GetStaffRole(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if role == review.RoleOwner && staffRole != string(review.RoleOwner) {
		writeError(w, http.StatusForbidden, "Owner role required")
		return
	}

	demoID := mux.Vars(r)["id"]
	if demoID == "" {
		writeError(w, http.StatusBadRequest, "Missing demo id")
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	action, err := review.ParseAction(role, req.Action)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.reviews.Transition(r.Context(), demoID, role, action)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
