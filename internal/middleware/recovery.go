package middleware

import (
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/hoopstat/scorekeeper/internal/errutil"
	"github.com/hoopstat/scorekeeper/internal/metrics"
)

// PanicHandler writes the response for a request whose handler panicked
type PanicHandler func(w http.ResponseWriter, r *http.Request, err error)

// Recovery creates panic recovery middleware. The recovered value is turned
// into an oops error carrying the stack, logged, and counted as a 500 on the
// matched route before handler writes the response.
func Recovery(logger *slog.Logger, handler PanicHandler) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				err := oops.In("http").
					Code("PANIC").
					With("method", r.Method).
					With("path", r.URL.Path).
					Errorf("panic: %v", rec)
				errutil.LogError(logger, "panic recovered", err,
					slog.String("stack", oopsStack(err)),
				)
				metrics.RecordHTTPRequest(r.Method, routeTemplate(r), http.StatusInternalServerError)

				handler(w, r, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultPanicHandler returns a plain 500 Internal Server Error
func DefaultPanicHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func oopsStack(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Stacktrace()
	}
	return ""
}
