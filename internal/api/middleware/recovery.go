package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/furqan899/safelift-ai/internal/api/response"
)

// Recovery converts handler panics into 500 responses. The panic value and
// stack stay in the server log; the client only sees the generic envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("http handler panicked",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
