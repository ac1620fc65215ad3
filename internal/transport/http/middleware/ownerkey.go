package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// OwnerKey returns middleware that gates a route behind the instance owner's
// API key, supplied in the X-Owner-Key header and compared against the
// configured bcrypt hash. An empty hash disables the routes entirely.
func OwnerKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				writeJSONError(w, http.StatusForbidden, "owner endpoints disabled")
				return
			}
			key := r.Header.Get("X-Owner-Key")
			if key == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing owner key")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid owner key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
