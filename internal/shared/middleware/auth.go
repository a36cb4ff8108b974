package middleware

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader carries the shared secret for internal callers
const APIKeyHeader = "X-API-Key"

// APIKey rejects requests whose X-API-Key header does not match key.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
