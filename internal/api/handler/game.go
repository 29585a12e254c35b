package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hoopstat/scorekeeper/internal/api/middleware"
	"github.com/hoopstat/scorekeeper/internal/api/request"
	"github.com/hoopstat/scorekeeper/internal/api/response"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/session"
)

// GameHandler handles actions on an open game session
type GameHandler struct {
	sessions *session.Manager
}

// NewGameHandler creates a new game handler
func NewGameHandler(sessions *session.Manager) *GameHandler {
	return &GameHandler{sessions: sessions}
}

// session returns the caller's open session for the game in the URL,
// writing the error response if there is none
func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	user := middleware.MustGetUser(r.Context())
	s, err := h.sessions.Get(gameIDFrom(r), user.ID)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	return s, true
}

// Get handles GET /api/v1/games/{game_id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, gameState(s))
}

// Permissions handles GET /api/v1/games/{game_id}/permissions
func (h *GameHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, response.PermissionsFromModel(s.Permissions(), s.IsGameCreator()))
}

// RefreshPermissions handles POST /api/v1/games/{game_id}/permissions/refresh
func (h *GameHandler) RefreshPermissions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RefreshPermissions(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.PermissionsFromModel(s.Permissions(), s.IsGameCreator()))
}

// SetUserPermissions handles PATCH /api/v1/games/{game_id}/permissions/{user_id}
func (h *GameHandler) SetUserPermissions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req request.PermissionPatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req) == 0 {
		WriteError(w, NewInvalidRequestError("At least one permission is required"))
		return
	}

	patch := make(model.PermissionPatch, len(req))
	for name, v := range req {
		patch[model.Permission(name)] = v
	}

	target := model.UserID(mux.Vars(r)["user_id"])
	if err := s.SetUserPermissions(r.Context(), target, patch); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// StartClock handles POST /api/v1/games/{game_id}/clock/start
func (h *GameHandler) StartClock(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.StartClock(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s).Clock)
}

// PauseClock handles POST /api/v1/games/{game_id}/clock/pause
func (h *GameHandler) PauseClock(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.PauseClock(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s).Clock)
}

// EndQuarter handles POST /api/v1/games/{game_id}/quarter/end
func (h *GameHandler) EndQuarter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.EndQuarter(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s))
}

// SetStarters handles PUT /api/v1/games/{game_id}/starters
func (h *GameHandler) SetStarters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req request.SetStartersRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.SetStarters(r.Context(), toPlayerIDs(req.Home), toPlayerIDs(req.Away)); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s))
}

// Substitute handles POST /api/v1/games/{game_id}/substitutions
func (h *GameHandler) Substitute(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req request.SubstitutionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	side := model.TeamSide(req.Side)
	if !side.Valid() {
		WriteError(w, model.ErrInvalidTeamSide)
		return
	}
	if req.PlayerOutID == "" || req.PlayerInID == "" {
		WriteError(w, NewInvalidRequestError("player_out_id and player_in_id are required"))
		return
	}

	err := s.Substitute(r.Context(), side, model.PlayerID(req.PlayerOutID), model.PlayerID(req.PlayerInID))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s))
}

// UpdateScore handles PUT /api/v1/games/{game_id}/score
func (h *GameHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req request.UpdateScoreRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Home == nil || req.Away == nil {
		WriteError(w, NewInvalidRequestError("home and away are required"))
		return
	}

	if err := s.UpdateScore(r.Context(), *req.Home, *req.Away); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s))
}

// RecordStat handles POST /api/v1/games/{game_id}/stats
func (h *GameHandler) RecordStat(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req request.RecordStatRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.RecordStat(r.Context(), model.PlayerID(req.PlayerID), model.StatKind(req.Kind)); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// RecordShot handles POST /api/v1/games/{game_id}/shots
func (h *GameHandler) RecordShot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req request.RecordShotRequest
	if !decodeBody(w, r, &req) {
		return
	}

	shot, err := s.RecordShot(r.Context(), model.PlayerID(req.PlayerID), model.ShotType(req.ShotType), req.Made)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, response.ShotFromModel(shot))
}

// Reload handles POST /api/v1/games/{game_id}/reload
func (h *GameHandler) Reload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reload(r.Context()); err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameState(s))
}

func toPlayerIDs(ids []string) []model.PlayerID {
	out := make([]model.PlayerID, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.PlayerID(id))
	}
	return out
}
