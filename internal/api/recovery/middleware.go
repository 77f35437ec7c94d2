// Package recovery keeps a panicking handler from taking the server down.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/tsuzuri-app/tsuzuri/internal/api/respond"
)

// Middleware intercepts panics from downstream handlers, logs the stack and
// returns HTTP 500.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logPanic(r, rec)
			respond.WriteInternalError(w, "")
		}()
		next.ServeHTTP(w, r)
	})
}

func logPanic(r *http.Request, rec any) {
	log.Error().
		Interface("panic", rec).
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("remote", r.RemoteAddr).
		Bytes("stack", debug.Stack()).
		Msg("panic recovered")
}
