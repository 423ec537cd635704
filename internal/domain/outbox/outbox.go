package outbox

import (
	"time"

	"github.com/google/uuid"
)

const (
	AggregatePayoutBatch = "payout_batch"

	EventBatchSubmitted = "payout_batch.submitted"
)

// Entry is an event written in the same transaction as the state change it
// announces, and relayed to the job stream by the worker.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       map[string]any
	Status        Status
	RetryCount    int
	MaxRetries    int
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
)

func NewEntry(aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]any) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		MaxRetries:    5,
		CreatedAt:     time.Now(),
	}
}

// BatchSubmitted announces a newly uploaded payout batch.
func BatchSubmitted(batchID uuid.UUID, fileName string, rows int) *Entry {
	return NewEntry(AggregatePayoutBatch, batchID, EventBatchSubmitted, map[string]any{
		"batch_id":  batchID.String(),
		"file_name": fileName,
		"rows":      rows,
	})
}

// Exhausted reports whether the relay should stop retrying the entry.
func (e *Entry) Exhausted() bool {
	return e.RetryCount >= e.MaxRetries
}
