package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hoopstat/scorekeeper/internal/api/apierr"
	"github.com/hoopstat/scorekeeper/internal/model"
	"github.com/hoopstat/scorekeeper/internal/services/auth"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionCookie is the cookie checked when no Authorization header is sent.
// Browser EventSource connections cannot set headers.
const SessionCookie = "session"

// Auth creates authentication middleware
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(SessionCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetSession returns the auth session from the request context
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionContextKey).(*auth.Session)
	return session
}

// MustGetSession returns the auth session or panics
func MustGetSession(ctx context.Context) *auth.Session {
	session := GetSession(ctx)
	if session == nil {
		panic("no session in context - auth middleware not applied?")
	}
	return session
}

// MustGetUser returns the authenticated user or panics
func MustGetUser(ctx context.Context) *model.User {
	return &MustGetSession(ctx).User
}
