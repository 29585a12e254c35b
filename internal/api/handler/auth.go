package handler

import (
	"net/http"

	"github.com/hoopstat/scorekeeper/internal/api/middleware"
	"github.com/hoopstat/scorekeeper/internal/api/request"
	"github.com/hoopstat/scorekeeper/internal/api/response"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/session"
)

// AuthHandler handles login and logout
type AuthHandler struct {
	authService *auth.Service
	sessions    *session.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("Username and password are required"))
		return
	}

	s, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(s))
}

// Logout handles POST /api/v1/auth/logout. Every game the user has open is
// closed by the auth service's logout hook.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := middleware.MustGetSession(r.Context())
	open := len(h.sessions.List(s.User.ID))

	if err := h.authService.Logout(r.Context(), s.Token); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LogoutResponse{ClosedSessions: open})
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())
	response.JSON(w, http.StatusOK, response.UserFromModel(*user))
}
