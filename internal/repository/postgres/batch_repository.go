package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// BatchRepository implements payout.Repository using PostgreSQL.
type BatchRepository struct {
	pool *pgxpool.Pool
}

func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

func (r *BatchRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const batchColumns = `id, file_name, medium, default_date, status, total, done, succeeded, failed,
	csv, submitted_by, last_error, created_at, updated_at, started_at, completed_at`

func scanBatch(s scanner) (*payout.Batch, error) {
	b := &payout.Batch{}
	var medium, status string
	err := s.Scan(&b.ID, &b.FileName, &medium, &b.DefaultDate, &status,
		&b.Progress.Total, &b.Progress.Done, &b.Progress.Succeeded, &b.Progress.Failed,
		&b.CSV, &b.SubmittedBy, &b.LastError, &b.CreatedAt, &b.UpdatedAt, &b.StartedAt, &b.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrBatchNotFound
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	b.Medium = payout.Medium(medium)
	b.Status = payout.BatchStatus(status)
	return b, nil
}

func (r *BatchRepository) Create(ctx context.Context, b *payout.Batch) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payout_batches (`+batchColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		b.ID, b.FileName, string(b.Medium), b.DefaultDate, string(b.Status),
		b.Progress.Total, b.Progress.Done, b.Progress.Succeeded, b.Progress.Failed,
		b.CSV, b.SubmittedBy, b.LastError, b.CreatedAt, b.UpdatedAt, b.StartedAt, b.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", b.ID, err)
	}
	return nil
}

func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*payout.Batch, error) {
	return scanBatch(r.db(ctx).QueryRow(ctx,
		`SELECT `+batchColumns+` FROM payout_batches WHERE id = $1`, id))
}

func (r *BatchRepository) List(ctx context.Context, filter payout.ListFilter) ([]*payout.Batch, int, error) {
	clause := ""
	var args []any
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clause = " WHERE status = $1"
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payout_batches`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM payout_batches%s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		batchColumns, clause, order, len(args)-1, len(args))

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []*payout.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

func (r *BatchRepository) UpdateProgress(ctx context.Context, b *payout.Batch) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payout_batches
		 SET status = $2, total = $3, done = $4, succeeded = $5, failed = $6,
		     last_error = $7, updated_at = $8, started_at = $9, completed_at = $10
		 WHERE id = $1`,
		b.ID, string(b.Status), b.Progress.Total, b.Progress.Done, b.Progress.Succeeded, b.Progress.Failed,
		b.LastError, b.UpdatedAt, b.StartedAt, b.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update batch %s progress: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrBatchNotFound
	}
	return nil
}

func (r *BatchRepository) AddRowResult(ctx context.Context, batchID uuid.UUID, res payout.RowResult) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payout_batch_rows
		   (batch_id, line, employee_id, amount, currency, date, external_id, outcome, reason, detail, reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (batch_id, line) DO NOTHING`,
		batchID, res.Line, res.EmployeeID, res.Amount, res.Currency, res.Date, res.ExternalID,
		string(res.Outcome), string(res.Reason), res.Detail, res.Reference,
	)
	if err != nil {
		return fmt.Errorf("insert row %d of batch %s: %w", res.Line, batchID, err)
	}
	return nil
}

func (r *BatchRepository) GetRowResults(ctx context.Context, batchID uuid.UUID) ([]payout.RowResult, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT line, employee_id, amount, currency, date, external_id, outcome, reason, detail, reference
		 FROM payout_batch_rows WHERE batch_id = $1 ORDER BY line`, batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("get rows of batch %s: %w", batchID, err)
	}
	defer rows.Close()

	results := []payout.RowResult{}
	for rows.Next() {
		var (
			res             payout.RowResult
			outcome, reason string
		)
		if err := rows.Scan(&res.Line, &res.EmployeeID, &res.Amount, &res.Currency, &res.Date,
			&res.ExternalID, &outcome, &reason, &res.Detail, &res.Reference); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		res.Outcome = payout.Outcome(outcome)
		res.Reason = payout.Reason(reason)
		results = append(results, res)
	}
	return results, rows.Err()
}
