package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func corsRequest(method, origin string, preflight bool) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/storefront/cart", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}
	return req
}

func TestCORS_DevelopmentAllowsAnyOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(DefaultCORSConfig())(statusHandler(http.StatusOK)).ServeHTTP(rec, corsRequest(http.MethodGet, "https://shop.example", false))

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), CorrelationHeader)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_ProductionAllowlist(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.Environment = "production"
	cfg.AllowedOrigins = []string{"https://shop.example"}
	h := CORS(cfg)(statusHandler(http.StatusOK))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, corsRequest(http.MethodGet, "https://shop.example", false))
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, corsRequest(http.MethodGet, "https://evil.example", false))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_CredentialsEchoOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowCredentials = true

	rec := httptest.NewRecorder()
	CORS(cfg)(statusHandler(http.StatusOK)).ServeHTTP(rec, corsRequest(http.MethodGet, "https://shop.example", false))

	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowedHeaders = append(cfg.AllowedHeaders, "X-Session-ID")

	rec := httptest.NewRecorder()
	CORS(cfg)(statusHandler(http.StatusTeapot)).ServeHTTP(rec, corsRequest(http.MethodOptions, "https://shop.example", true))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PlainOptionsReachesHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(DefaultCORSConfig())(statusHandler(http.StatusTeapot)).ServeHTTP(rec, corsRequest(http.MethodOptions, "", false))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
