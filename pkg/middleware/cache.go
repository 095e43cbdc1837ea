package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl returns a middleware that sets the Cache-Control header on GET
// responses. Use "private" for responses that vary by session.
func CacheControl(scope string, maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("%s, max-age=%d", scope, maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
