package middleware

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name      string
		path      string
		tls       bool
		forwarded string
		wantHSTS  bool
		wantCache string
	}{
		{"plain http", "/api/v1/admin/employees", false, "", false, "no-store"},
		{"tls", "/api/v1/payouts/batches", true, "", true, "no-store"},
		{"behind tls proxy", "/api/v1/admin/auth/me", false, "https", true, "no-store"},
		{"csv template", "/api/v1/payouts/template", false, "", false, "private, max-age=3600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
			assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
			assert.Equal(t, tt.wantHSTS, w.Header().Get("Strict-Transport-Security") != "")
			assert.Equal(t, tt.wantCache, w.Header().Get("Cache-Control"))
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	login := func(h http.Handler, ip, email string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login",
			strings.NewReader(`{"email":"`+email+`","password":"x"}`))
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	t.Run("per ip", func(t *testing.T) {
		h := LoginRateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		codes := []int{
			login(h, "10.0.0.1", "a@company.com"),
			login(h, "10.0.0.1", "b@company.com"),
			login(h, "10.0.0.1", "c@company.com"),
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("per email across ips", func(t *testing.T) {
		h := LoginRateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		codes := []int{
			login(h, "10.0.0.1", "admin@company.com"),
			login(h, "10.0.0.2", "Admin@Company.com"),
			login(h, "10.0.0.3", "admin@company.com"),
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	})

	t.Run("body reaches handler", func(t *testing.T) {
		var got string
		h := LoginRateLimit(5)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			got = string(b)
		}))
		login(h, "10.0.0.9", "root@company.com")
		assert.JSONEq(t, `{"email":"root@company.com","password":"x"}`, got)
	})
}
