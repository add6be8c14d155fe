package server

import (
	"encoding/json"
	"net/http"

	"demodesk/model"
)

// EventsHandler dispatches the event listings CRUD surface.
// GET/POST/PUT/DELETE /api/events (PUT and DELETE take ?id=)
func (h *APIHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listEvents(w, r)
	case http.MethodPost:
		h.createEvent(w, r)
	case http.MethodPut:
		h.updateEvent(w, r)
	case http.MethodDelete:
		h.deleteEvent(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *APIHandler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.EventFile{Events: events})
}

func (h *APIHandler) createEvent(w http.ResponseWriter, r *http.Request) {
	var in model.Event
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	event, err := h.events.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *APIHandler) updateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing 'id' query parameter")
		return
	}
	var in model.Event
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	event, err := h.events.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *APIHandler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing 'id' query parameter")
		return
	}
	if err := h.events.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
