package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

const maxLoginBodySize = 64 << 10

// LoginRateLimit allows requestsPerMinute login attempts per client IP and,
// separately, per submitted email, so one account cannot be guessed at from
// many addresses.
func LoginRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 10
	}
	byIP := httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(tooManyAttempts),
	)
	byEmail := httprate.Limit(requestsPerMinute, time.Minute,
		httprate.WithKeyFuncs(keyByLoginEmail),
		httprate.WithLimitHandler(tooManyAttempts),
	)
	return func(next http.Handler) http.Handler {
		return byIP(byEmail(next))
	}
}

// keyByLoginEmail peeks at the JSON body and puts it back for the handler.
// Requests without a readable email fall back to the client IP.
func keyByLoginEmail(r *http.Request) (string, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBodySize))
	if err != nil {
		return "", err
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var req struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &req) == nil {
		if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" {
			return "email:" + email, nil
		}
	}
	ip, err := httprate.KeyByIP(r)
	return "ip:" + ip, err
}

func tooManyAttempts(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusTooManyRequests, "too many attempts, try again later", "rate_limit")
}
