package auth

import (
	"net/http"
	"strings"
)

// ExtractAPIKey pulls the API key from the Authorization header. The
// expected format is "Bearer <api_key>"; anything else yields an empty
// key, letting the authorizer decide whether that is acceptable.
func ExtractAPIKey(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
