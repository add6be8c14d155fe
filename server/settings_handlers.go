package server

import (
	"encoding/json"
	"net/http"
)

type demoSubmissionSetting struct {
	Enabled bool `json:"enabled"`
}

// DemoSubmissionFlagHandler reads and writes the public demo-submission
// feature flag.
// GET/PATCH /api/settings/demo-submission-enabled
func (h *APIHandler) DemoSubmissionFlagHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		enabled, err := h.flags.DemoSubmissionEnabled(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, demoSubmissionSetting{Enabled: enabled})
	case http.MethodPatch:
		var req demoSubmissionSetting
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := h.flags.SetDemoSubmissionEnabled(r.Context(), req.Enabled); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
