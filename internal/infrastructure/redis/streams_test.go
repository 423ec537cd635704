package redis

import (
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchJob(t *testing.T) {
	batchID := uuid.New()
	msg := redis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]any{
			"batch_id":   batchID.String(),
			"event_type": "payout_batch.submitted",
			"payload":    `{"rows":3,"file_name":"oct.csv"}`,
		},
	}

	job, err := ParseBatchJob(msg)

	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", job.MessageID)
	assert.Equal(t, batchID, job.BatchID)
	assert.Equal(t, "payout_batch.submitted", job.EventType)
	assert.Equal(t, "oct.csv", job.Payload["file_name"])
	assert.Equal(t, 3.0, job.Payload["rows"])
}

func TestParseBatchJob_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
	}{
		{"missing batch id", map[string]any{}},
		{"malformed batch id", map[string]any{"batch_id": "nope"}},
		{"malformed payload", map[string]any{"batch_id": uuid.NewString(), "payload": "{"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBatchJob(redis.XMessage{ID: "1-0", Values: tt.values})
			assert.Error(t, err)
		})
	}
}

func TestProgressValues(t *testing.T) {
	batchID := uuid.New()
	u := pipeline.Update{
		BatchID: batchID,
		Row: payout.RowResult{
			Line:       4,
			EmployeeID: "EMP007",
			Outcome:    payout.OutcomeRejected,
			Reason:     payout.ReasonEmployeeNotFound,
		},
		Progress: payout.Progress{Total: 10, Done: 3, Succeeded: 2, Failed: 1},
	}

	values := progressValues(u)

	assert.Equal(t, batchID.String(), values["batch_id"])
	assert.Equal(t, 4, values["line"])
	assert.Equal(t, "rejected", values["outcome"])
	assert.Equal(t, "employee_not_found", values["reason"])
	assert.Equal(t, 10, values["total"])
	assert.Equal(t, 3, values["done"])
	assert.Equal(t, 2, values["succeeded"])
	assert.Equal(t, 1, values["failed"])
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "lock:payouts:dispatch", LockKey(DispatchLockKey))
}
