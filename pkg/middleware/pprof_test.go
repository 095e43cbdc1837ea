package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func TestIPAllowlist(t *testing.T) {
	h := IPAllowlist([]string{"127.0.0.1/32", "10.0.0.0/8", "::1/128", "not-a-cidr"}, discardLogger())(statusHandler(http.StatusOK))

	tests := []struct {
		remoteAddr string
		want       int
	}{
		{"127.0.0.1:5555", http.StatusOK},
		{"10.20.30.40:80", http.StatusOK},
		{"[::1]:9000", http.StatusOK},
		{"[::ffff:10.1.1.1]:80", http.StatusOK},
		{"192.168.1.5:1234", http.StatusForbidden},
		{"garbage", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.remoteAddr, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
			req.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestIPAllowlist_IgnoresForwardedFor(t *testing.T) {
	h := IPAllowlist([]string{"127.0.0.1/32"}, discardLogger())(statusHandler(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FORBIDDEN"`)
}

func TestRegisterPprof_MountsIndex(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"192.0.2.0/24"}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	req.RemoteAddr = "192.0.2.10:1000"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}
