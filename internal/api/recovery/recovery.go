// Package recovery keeps a panicking handler from taking down the whole
// journal service. The outermost middleware on the router converts a panic
// into a 500 using the shared error shape.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/ahnissingh/Journal-TherapyAi-sub001/internal/api/respond"
)

// Middleware recovers panics from downstream handlers, logs the stack, and
// answers with the standard JSON error body.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("panic", rec).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Str("remote", r.RemoteAddr).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				respond.WriteInternalError(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
