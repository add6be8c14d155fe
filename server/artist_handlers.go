package server

import (
	"encoding/json"
	"net/http"

	"demodesk/model"
)

// ArtistsHandler dispatches the artist roster CRUD surface.
// GET/POST/PUT/DELETE /api/artists (PUT and DELETE take ?id=)
func (h *APIHandler) ArtistsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listArtists(w, r)
	case http.MethodPost:
		h.createArtist(w, r)
	case http.MethodPut:
		h.updateArtist(w, r)
	case http.MethodDelete:
		h.deleteArtist(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *APIHandler) listArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := h.artists.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ArtistFile{Artists: artists})
}

func (h *APIHandler) createArtist(w http.ResponseWriter, r *http.Request) {
	var in model.Artist
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	artist, err := h.artists.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (h *APIHandler) updateArtist(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing 'id' query parameter")
		return
	}
	var in model.Artist
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	artist, err := h.artists.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (h *APIHandler) deleteArtist(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing 'id' query parameter")
		return
	}
	if err := h.artists.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
