package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/staffdesk/hradmin/internal/repository/postgres"
)

const (
	maxIdempotencyBodySize = 1 << 20
	// A reservation whose request never finished frees itself after this.
	idempotencyPendingTTL = 2 * time.Minute
)

// IdempotencyStore keeps responses keyed by Idempotency-Key. Reserve must be
// atomic: of two concurrent callers with the same key only one is reserved.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, path string, expiresAt time.Time) (*postgres.IdempotencyEntry, bool, error)
	Complete(ctx context.Context, entry *postgres.IdempotencyEntry) error
	Release(ctx context.Context, key string) error
}

// Idempotency reserves the Idempotency-Key before the handler runs and
// replays the stored response for later requests with the same key. A
// duplicate that arrives while the first is still running gets 409. Server
// errors release the key instead of being stored.
func Idempotency(store IdempotencyStore, ttl time.Duration) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			entry, reserved, err := store.Reserve(ctx, key, r.URL.Path, time.Now().Add(idempotencyPendingTTL))
			if err != nil {
				log.Error().Err(err).Str("key", key).Msg("Idempotency reservation failed")
				writeJSONError(w, http.StatusServiceUnavailable, "idempotency store unavailable", "idempotency_unavailable")
				return
			}

			if !reserved {
				switch {
				case entry == nil || entry.Pending():
					writeJSONError(w, http.StatusConflict, "a request with this Idempotency-Key is in progress", "request_in_progress")
				case entry.RequestPath != r.URL.Path:
					writeJSONError(w, http.StatusUnprocessableEntity, "Idempotency-Key was used for a different request", "idempotency_key_reused")
				default:
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("X-Idempotency-Replayed", "true")
					w.WriteHeader(entry.ResponseStatus)
					w.Write([]byte(entry.ResponseBody))
				}
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			// The request context may be done by now.
			storeCtx := context.WithoutCancel(ctx)
			if rec.statusCode >= 200 && rec.statusCode < 500 && !rec.bodyTruncated {
				now := time.Now()
				if err := store.Complete(storeCtx, &postgres.IdempotencyEntry{
					Key:            key,
					RequestPath:    r.URL.Path,
					ResponseBody:   rec.body.String(),
					ResponseStatus: rec.statusCode,
					CreatedAt:      now,
					ExpiresAt:      now.Add(ttl),
				}); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("Failed to store idempotent response")
				}
				return
			}
			if err := store.Release(storeCtx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to release idempotency key")
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode    int
	body          *bytes.Buffer
	bodyTruncated bool
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.bodyTruncated {
		if r.body.Len()+len(b) > maxIdempotencyBodySize {
			r.bodyTruncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}
