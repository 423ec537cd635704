package payout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffdesk/hradmin/internal/domain/errors"
)

// BatchStatus is the lifecycle state of a bulk payout run.
type BatchStatus string

const (
	BatchPending   BatchStatus = "pending"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
	BatchFailed    BatchStatus = "failed"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchPending:   {BatchRunning, BatchFailed},
	BatchRunning:   {BatchCompleted, BatchCancelled, BatchFailed},
	BatchCompleted: {},
	BatchCancelled: {},
	BatchFailed:    {},
}

// Progress counts the rows of a batch. Succeeded+Failed always equals Done.
type Progress struct {
	Total     int
	Done      int
	Succeeded int
	Failed    int
}

func (p Progress) Valid() bool {
	return p.Succeeded >= 0 && p.Failed >= 0 &&
		p.Succeeded+p.Failed == p.Done &&
		p.Done <= p.Total
}

// Remaining is the number of rows not yet dispatched.
func (p Progress) Remaining() int {
	return p.Total - p.Done
}

// Batch is one uploaded payout file and its dispatch state.
type Batch struct {
	ID          uuid.UUID
	FileName    string
	Medium      Medium
	DefaultDate string
	Status      BatchStatus
	Progress    Progress
	CSV         string
	SubmittedBy string
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func NewBatch(fileName, csv string, medium Medium, defaultDate, submittedBy string) (*Batch, error) {
	if !medium.Valid() {
		return nil, errors.NewValidationError("medium", "must be \"mobile money\" or \"orange money\"")
	}
	if strings.TrimSpace(csv) == "" {
		return nil, errors.NewValidationError("file", "cannot be empty")
	}
	if defaultDate == "" {
		return nil, errors.NewValidationError("date", "cannot be empty")
	}

	now := time.Now()
	return &Batch{
		ID:          uuid.New(),
		FileName:    fileName,
		Medium:      medium,
		DefaultDate: defaultDate,
		Status:      BatchPending,
		CSV:         csv,
		SubmittedBy: submittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (b *Batch) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[b.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (b *Batch) TransitionTo(next BatchStatus) error {
	if !b.CanTransitionTo(next) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(b.Status)+" to "+string(next),
			errors.ErrInvalidStateTransition,
		)
	}

	now := time.Now()
	b.Status = next
	b.UpdatedAt = now
	if b.IsTerminal() {
		b.CompletedAt = &now
	}
	return nil
}

// Start moves the batch to running with total rows to dispatch and zeroed counters.
func (b *Batch) Start(total int) error {
	if total < 0 {
		return errors.NewValidationError("total", "cannot be negative")
	}
	if err := b.TransitionTo(BatchRunning); err != nil {
		return err
	}
	b.Progress = Progress{Total: total}
	started := b.UpdatedAt
	b.StartedAt = &started
	return nil
}

// Record counts one finished row. It is the only way the counters move.
func (b *Batch) Record(r RowResult) error {
	if b.Status != BatchRunning {
		return errors.NewDomainError(
			"invalid_state",
			"cannot record a row on a "+string(b.Status)+" batch",
			errors.ErrInvalidStateTransition,
		)
	}
	if b.Progress.Done >= b.Progress.Total {
		return fmt.Errorf("batch %s: all %d rows already recorded", b.ID, b.Progress.Total)
	}

	b.Progress.Done++
	if r.Outcome.Succeeded() {
		b.Progress.Succeeded++
	} else {
		b.Progress.Failed++
	}
	b.UpdatedAt = time.Now()
	return nil
}

func (b *Batch) Complete() error {
	return b.TransitionTo(BatchCompleted)
}

func (b *Batch) Cancel() error {
	return b.TransitionTo(BatchCancelled)
}

// Fail marks a batch that could not be started, or whose run died with
// its worker.
func (b *Batch) Fail(reason string) error {
	if err := b.TransitionTo(BatchFailed); err != nil {
		return err
	}
	b.LastError = &reason
	return nil
}

func (b *Batch) IsTerminal() bool {
	return b.Status == BatchCompleted || b.Status == BatchCancelled || b.Status == BatchFailed
}

func (b *Batch) Summary() Summary {
	return Summary{
		BatchID:   b.ID,
		Status:    b.Status,
		Total:     b.Progress.Total,
		Succeeded: b.Progress.Succeeded,
		Failed:    b.Progress.Failed,
	}
}

// Summary is the caller-facing result of a batch run.
type Summary struct {
	BatchID   uuid.UUID
	Status    BatchStatus
	Total     int
	Succeeded int
	Failed    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d payouts: %d succeeded, %d failed", s.Total, s.Succeeded, s.Failed)
}
