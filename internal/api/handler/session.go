package handler

import (
	"net/http"

	"github.com/hoopstat/scorekeeper/internal/api/middleware"
	"github.com/hoopstat/scorekeeper/internal/api/response"
	"github.com/hoopstat/scorekeeper/internal/services/session"
	"github.com/hoopstat/scorekeeper/internal/storage"
)

// SessionHandler handles opening and closing game sessions
type SessionHandler struct {
	sessions *session.Manager
	cache    storage.SessionCache
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *session.Manager, cache storage.SessionCache) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		cache:    cache,
	}
}

// List handles GET /api/v1/games
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	open := h.sessions.List(user.ID)
	resp := response.SessionList{Sessions: make([]response.SessionSummary, 0, len(open))}
	for _, s := range open {
		resp.Sessions = append(resp.Sessions, response.SessionSummaryFromSnapshot(s.View()))
	}

	response.JSON(w, http.StatusOK, resp)
}

// Open handles POST /api/v1/games/{game_id}/session
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	authSession := middleware.MustGetSession(r.Context())

	s, err := h.sessions.Open(r.Context(), authSession, gameIDFrom(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, gameState(s))
}

// Close handles DELETE /api/v1/games/{game_id}/session
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	if err := h.sessions.Close(r.Context(), gameIDFrom(r), user.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Local handles GET /api/v1/games/{game_id}/local. It serves the cached
// snapshot, which survives the session being closed until it expires.
func (h *SessionHandler) Local(w http.ResponseWriter, r *http.Request) {
	user := middleware.MustGetUser(r.Context())

	snapshot, err := h.cache.GetSnapshot(r.Context(), gameIDFrom(r), user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LocalSnapshotFromModel(snapshot))
}

func gameState(s *session.Session) response.GameState {
	return response.GameStateFromModel(s.Game(), s.Permissions(), s.IsGameCreator())
}
