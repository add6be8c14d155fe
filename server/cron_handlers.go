package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// CleanupRejectedHandler runs the rejected-demo sweep. The route is meant
// for an external cron trigger and is guarded by a shared secret rather
// than a staff token.
// GET /api/cron/cleanup-rejected
func (h *APIHandler) CleanupRejectedHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.CronSecret == "" {
		writeError(w, http.StatusServiceUnavailable, "Cron secret not configured")
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.cfg.CronSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid cron secret")
		return
	}

	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
