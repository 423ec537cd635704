package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
)

// unmatchedRoute labels requests chi could not route, so scans of random
// paths do not create a series each.
const unmatchedRoute = "unmatched"

// Metrics records request counts, latency and in-flight requests per chi
// route pattern. Replayed idempotent responses are counted separately so a
// retrying client does not look like a second payout.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			ww := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(ww, r)

			route := routeLabel(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(ww.statusCode)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			if ww.Header().Get("X-Idempotency-Replayed") == "true" {
				m.IdempotentReplaysTotal.WithLabelValues(route).Inc()
			}
		})
	}
}

// routeLabel is the matched pattern, e.g. "/api/v1/payouts/batches/{id}".
// It is only complete once the router has served the request.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
