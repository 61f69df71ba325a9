package web

import (
	"crypto/subtle"
	"net/http"

	"timely/internal/apperr"
)

// requireAPIKey gates a handler behind the X-API-Key header. With no key
// configured the hub runs in open mode and every request passes.
func requireAPIKey(key string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			respondError(w, apperr.New(apperr.CodeUnauthorized, "missing or invalid API key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
