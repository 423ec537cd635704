package payout

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create stores a new batch (typically inside a transaction with its outbox entry)
	Create(ctx context.Context, batch *Batch) error

	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// List returns batches matching the filter and the total match count
	List(ctx context.Context, filter ListFilter) ([]*Batch, int, error)

	// UpdateProgress persists status, counters and timestamps of a batch
	UpdateProgress(ctx context.Context, batch *Batch) error

	AddRowResult(ctx context.Context, batchID uuid.UUID, result RowResult) error

	// GetRowResults returns the recorded rows of a batch in line order
	GetRowResults(ctx context.Context, batchID uuid.UUID) ([]RowResult, error)
}

type ListFilter struct {
	Status    *BatchStatus
	Limit     int
	Offset    int
	SortOrder string
}
