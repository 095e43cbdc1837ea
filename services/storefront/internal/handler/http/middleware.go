package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/services/storefront/internal/service"
)

// SessionHeader carries the storefront session id in both directions.
const SessionHeader = "X-Session-ID"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const storefrontKey contextKey = "storefront"

// SessionScope resolves the X-Session-ID header to a storefront session,
// creating one when the header is absent or unknown. The effective id is
// echoed back on the response so the client can adopt it.
func SessionScope(sessions *service.SessionService, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(SessionHeader)
			if id != "" {
				if _, ok := httputil.ParseUUID(w, r, id); !ok {
					return
				}
			}

			sf, err := sessions.Open(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, r, err, fallback)
				return
			}
			w.Header().Set(SessionHeader, sf.ID)

			ctx := logger.WithSessionID(r.Context(), sf.ID)
			if uid := sf.Auth.UserID(); uid != "" {
				ctx = logger.WithUserID(ctx, uid)
			}
			l := logger.FromContext(ctx)
			if l == slog.Default() {
				l = fallback
			}
			ctx = logger.NewContext(ctx, l.With(slog.String("session_id", sf.ID)))
			ctx = context.WithValue(ctx, storefrontKey, sf)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// storefrontFromContext returns the session resolved by SessionScope.
func storefrontFromContext(ctx context.Context) *service.Storefront {
	sf, _ := ctx.Value(storefrontKey).(*service.Storefront)
	return sf
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "UNSUPPORTED_MEDIA_TYPE",
						Message: "Content-Type must be application/json",
					},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
