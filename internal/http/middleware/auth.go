package middleware

import (
	"encoding/json"
	"net/http"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// RequireAuth rejects requests without an authenticated session. This is a
// JSON API, so the answer is a 401 envelope rather than a redirect.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(UserIDKey)
		if userID == nil || userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"success": false,
				"message": "authentication required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
