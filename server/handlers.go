package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"demodesk/cache"
	"demodesk/config"
	"demodesk/core/cleanup"
	"demodesk/core/hub"
	"demodesk/core/registry"
	"demodesk/core/review"
	"demodesk/logger"
	"demodesk/storage"
)

// APIHandler carries the wired services for all API routes.
type APIHandler struct {
	cfg     *config.Config
	reviews *review.Service
	artists *registry.ArtistRegistry
	events  *registry.EventRegistry
	flags   *cache.FlagStore
	sweeper *cleanup.Sweeper
	allow   *config.Allowlist
	hub     *hub.Hub
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	cfg *config.Config,
	reviews *review.Service,
	artists *registry.ArtistRegistry,
	events *registry.EventRegistry,
	flags *cache.FlagStore,
	sweeper *cleanup.Sweeper,
	allow *config.Allowlist,
	h *hub.Hub,
) *APIHandler {
	return &APIHandler{
		cfg:     cfg,
		reviews: reviews,
		artists: artists,
		events:  events,
		flags:   flags,
		sweeper: sweeper,
		allow:   allow,
		hub:     h,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("[API] failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors onto HTTP statuses: validation
// and invalid transitions are 400, missing things are 404, the rest 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr registry.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, review.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrDemoNotFound),
		errors.Is(err, registry.ErrRecordNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("[API] request failed", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
