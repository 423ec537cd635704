package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a server span per request. The span is renamed to
// "METHOD /route/{pattern}" once chi has matched the route, and carries the
// request ID and any Idempotency-Key so a replayed payout can be traced back
// to the original request.
func Tracing(opts ...otelhttp.Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		annotated := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := trace.SpanFromContext(r.Context())
			if id := middleware.GetReqID(r.Context()); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}
			if key := r.Header.Get("Idempotency-Key"); key != "" {
				span.SetAttributes(attribute.String("payout.idempotency_key", key))
			}

			next.ServeHTTP(w, r)

			route := routeLabel(r)
			span.SetName(r.Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		})
		return otelhttp.NewHandler(annotated, "http.request", opts...)
	}
}
