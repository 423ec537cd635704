package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyEntry is a stored response replayed for a repeated Idempotency-Key.
type IdempotencyEntry struct {
	Key            string
	RequestPath    string
	ResponseBody   string
	ResponseStatus int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// Pending reports whether the owning request has not finished yet.
func (e *IdempotencyEntry) Pending() bool {
	return e.ResponseStatus == 0
}

type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

func (r *IdempotencyRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Get returns nil, nil when the key is unknown or expired.
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*IdempotencyEntry, error) {
	e := &IdempotencyEntry{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT key, request_path, response_body, response_status, created_at, expires_at
		 FROM idempotency_keys WHERE key = $1 AND expires_at > NOW()`, key,
	).Scan(&e.Key, &e.RequestPath, &e.ResponseBody, &e.ResponseStatus, &e.CreatedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return e, nil
}

// Reserve claims key for a request in flight. It returns reserved=true when
// the caller now owns the key; otherwise it returns the entry already holding
// it, which may be unfinished (ResponseStatus 0). Expired rows are taken over.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key, path string, expiresAt time.Time) (*IdempotencyEntry, bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO idempotency_keys (key, request_path, response_body, response_status, created_at, expires_at)
		 VALUES ($1, $2, '', 0, NOW(), $3)
		 ON CONFLICT (key) DO UPDATE SET
		     request_path = EXCLUDED.request_path, response_body = '', response_status = 0,
		     created_at = NOW(), expires_at = EXCLUDED.expires_at
		 WHERE idempotency_keys.expires_at <= NOW()`,
		key, path, expiresAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, true, nil
	}

	existing, err := r.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Complete stores the final response on a reserved key.
func (r *IdempotencyRepository) Complete(ctx context.Context, entry *IdempotencyEntry) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE idempotency_keys
		 SET response_body = $2, response_status = $3, expires_at = $4
		 WHERE key = $1`,
		entry.Key, entry.ResponseBody, entry.ResponseStatus, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release drops an unfinished reservation so the client may retry.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND response_status = 0`, key)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

// Cleanup deletes expired keys and returns how many were removed.
func (r *IdempotencyRepository) Cleanup(ctx context.Context) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
