package middleware

import (
	"crypto/subtle"
	"net/http"

	apperrors "github.com/lexeval/lexeval/internal/pkg/errors"
)

// APIKey returns middleware that requires a matching X-API-Key header.
// An empty configured key disables the check.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				apperrors.WriteError(w, apperrors.UnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
