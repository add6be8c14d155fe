package server

import (
	"net/http"

	"demodesk/core/auth"
	"demodesk/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UpdatesHandler upgrades a dashboard session to a websocket that
// receives demo status changes. Browsers cannot set headers on websocket
// requests, so the token rides in the query string.
// GET /api/ws/updates?token=...
func (h *APIHandler) UpdatesHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Missing 'token' query parameter")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}
	if _, ok := h.allow.Role(claims.Email); !ok {
		writeError(w, http.StatusUnauthorized, "Email not allow-listed")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("[WS] upgrade failed", logger.ErrorField(err))
		return
	}

	h.hub.Register(conn)

	// Drain the connection; the hub only pushes. Read failure means the
	// session went away.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
