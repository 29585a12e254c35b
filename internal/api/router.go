package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hoopstat/scorekeeper/internal/api/handler"
	"github.com/hoopstat/scorekeeper/internal/api/middleware"
	"github.com/hoopstat/scorekeeper/internal/api/sse"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
	"github.com/hoopstat/scorekeeper/internal/services/session"
	"github.com/hoopstat/scorekeeper/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Sessions    *session.Manager
	Cache       storage.SessionCache
	Streams     *sse.Registry

	// Metrics serves /metrics when set
	Metrics http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.Sessions)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Cache)
	gameHandler := handler.NewGameHandler(cfg.Sessions)
	eventsHandler := handler.NewEventsHandler(cfg.Sessions, cfg.Streams)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Unauthenticated routes
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	protected.HandleFunc("/auth/me", authHandler.Me).Methods(http.MethodGet)

	// Session lifecycle
	protected.HandleFunc("/games", sessionHandler.List).Methods(http.MethodGet)
	protected.HandleFunc("/games/{game_id}/session", sessionHandler.Open).Methods(http.MethodPost)
	protected.HandleFunc("/games/{game_id}/session", sessionHandler.Close).Methods(http.MethodDelete)
	protected.HandleFunc("/games/{game_id}/local", sessionHandler.Local).Methods(http.MethodGet)

	// Game actions (require an open session)
	games := protected.PathPrefix("/games/{game_id}").Subrouter()
	games.HandleFunc("", gameHandler.Get).Methods(http.MethodGet)
	games.HandleFunc("/permissions", gameHandler.Permissions).Methods(http.MethodGet)
	games.HandleFunc("/permissions/refresh", gameHandler.RefreshPermissions).Methods(http.MethodPost)
	games.HandleFunc("/permissions/{user_id}", gameHandler.SetUserPermissions).Methods(http.MethodPatch)
	games.HandleFunc("/clock/start", gameHandler.StartClock).Methods(http.MethodPost)
	games.HandleFunc("/clock/pause", gameHandler.PauseClock).Methods(http.MethodPost)
	games.HandleFunc("/quarter/end", gameHandler.EndQuarter).Methods(http.MethodPost)
	games.HandleFunc("/starters", gameHandler.SetStarters).Methods(http.MethodPut)
	games.HandleFunc("/substitutions", gameHandler.Substitute).Methods(http.MethodPost)
	games.HandleFunc("/score", gameHandler.UpdateScore).Methods(http.MethodPut)
	games.HandleFunc("/stats", gameHandler.RecordStat).Methods(http.MethodPost)
	games.HandleFunc("/shots", gameHandler.RecordShot).Methods(http.MethodPost)
	games.HandleFunc("/reload", gameHandler.Reload).Methods(http.MethodPost)
	games.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
