package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/services/storefront/internal/service"
)

// SessionHandler handles HTTP requests for the shopper's session.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(sessions *service.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// LoginRequest is the JSON request body for signing a session in with a
// token issued by the identity service.
type LoginRequest struct {
	Token string `json:"token" validate:"required"`
}

// GetSession handles GET /api/v1/storefront/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newSessionView(sf)})
}

// Login handles POST /api/v1/storefront/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())

	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.sessions.Login(r.Context(), sf, req.Token); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newSessionView(sf)})
}

// Logout handles POST /api/v1/storefront/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	h.sessions.Logout(r.Context(), sf)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newSessionView(sf)})
}

// Abandon handles POST /api/v1/storefront/session/abandon
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	h.sessions.Abandon(r.Context(), sf)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newSessionView(sf)})
}

// Close handles DELETE /api/v1/storefront/session
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	if err := h.sessions.Close(r.Context(), sf.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Notifications handles GET /api/v1/storefront/notifications. Returned
// toasts are removed from the session.
func (h *SessionHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	sf := storefrontFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: sf.Toasts.Drain()})
}
