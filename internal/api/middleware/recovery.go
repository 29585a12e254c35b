package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hoopstat/scorekeeper/internal/api/apierr"
	"github.com/hoopstat/scorekeeper/internal/middleware"
)

// Recovery creates panic recovery middleware that answers with a JSON
// INTERNAL_ERROR body
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ error) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
