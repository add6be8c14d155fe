package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"demodesk/core/auth"
	"demodesk/logger"
)

type contextKey string

const (
	emailKey contextKey = "staffEmail"
	roleKey  contextKey = "staffRole"
)

// AuthMiddleware validates the bearer token issued by the identity
// provider and resolves the staff role from the allow-list. Tokens for
// emails outside the list are rejected even when validly signed.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		role, ok := h.allow.Role(claims.Email)
		if !ok {
			logger.Warn("[Auth] email not allow-listed", logger.String("email", claims.Email))
			writeError(w, http.StatusUnauthorized, "Email not allow-listed")
			return
		}

		ctx := context.WithValue(r.Context(), emailKey, claims.Email)
		ctx = context.WithValue(ctx, roleKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetStaffEmail extracts the authenticated staff email from the context.
func GetStaffEmail(ctx context.Context) (string, error) {
	email, ok := ctx.Value(emailKey).(string)
	if !ok {
		return "", fmt.Errorf("staff email not found in context")
	}
	return email, nil
}

// GetStaffRole extracts the resolved staff role from the context.
func GetStaffRole(ctx context.Context) (string, error) {
	role, ok := ctx.Value(roleKey).(string)
	if !ok {
		return "", fmt.Errorf("staff role not found in context")
	}
	return role, nil
}

// ValidateEmailHandler reports whether an email is allow-listed and with
// which role. The sign-in flow calls this before issuing a session.
// GET /api/validate-email?email=...
func (h *APIHandler) ValidateEmailHandler(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Missing 'email' query parameter")
		return
	}

	role, ok := h.allow.Role(email)
	resp := map[string]interface{}{"valid": ok}
	if ok {
		resp["role"] = role
	}
	writeJSON(w, http.StatusOK, resp)
}
