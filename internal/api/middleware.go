// Package api implements the Clawfable REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
)

// AdminAuthMiddleware returns middleware that validates the X-Admin-Token
// header against the configured token. An empty configured token disables
// the admin surface entirely.
func AdminAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				writeJSON(w, http.StatusForbidden, errorBody("admin surface is disabled"))
				return
			}
			provided := r.Header.Get("X-Admin-Token")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("missing or invalid admin token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
