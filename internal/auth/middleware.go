package auth

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tsuzuri-app/tsuzuri/internal/api/respond"
)

// Middleware enforces the authorizer on every request of a router. Failed
// requests get a 401 JSON body matching the service's error shape.
func Middleware(a Authorizer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := a.Authorize(r.Context(), ExtractAPIKey(r)); err != nil {
				respond.WriteUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
