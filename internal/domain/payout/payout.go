package payout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffdesk/hradmin/internal/domain/errors"
)

// Medium is the mobile wallet network a payout is delivered through.
type Medium string

const (
	MediumMobileMoney Medium = "mobile money"
	MediumOrangeMoney Medium = "orange money"
)

func (m Medium) Valid() bool {
	return m == MediumMobileMoney || m == MediumOrangeMoney
}

// ParseMedium accepts the medium case-insensitively, with or without the
// separating space ("orange_money" and "OrangeMoney" are also accepted).
func ParseMedium(s string) (Medium, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	switch norm {
	case "mobile money", "mobilemoney":
		return MediumMobileMoney, nil
	case "orange money", "orangemoney":
		return MediumOrangeMoney, nil
	}
	return "", fmt.Errorf("%w: %q", errors.ErrInvalidMedium, s)
}

// Request is one payout as handed to the gateway. Amount may be NaN when the
// source value was not numeric; the gateway client decides what to do with it.
type Request struct {
	Amount     float64
	Phone      string
	Medium     Medium
	Name       string
	Email      string
	UserID     string
	ExternalID string
	Message    string
	Currency   string
}

// SendResult is the gateway's answer to an accepted request.
type SendResult struct {
	Status    string
	Message   string
	Reference string
}

// Success reports whether the gateway took the payout.
func (r *SendResult) Success() bool {
	if r == nil {
		return false
	}
	s := strings.ToLower(r.Status)
	return s == "success" || s == "pending"
}

// NewBatchToken builds the idempotency token for row index of a batch.
func NewBatchToken(at time.Time, employeeID string, index int) string {
	return fmt.Sprintf("po_%d_%s_%d_%s", at.UnixMilli(), employeeID, index, randSuffix())
}

// NewManualToken builds the idempotency token for a manual payout.
func NewManualToken(at time.Time, employeeID string) string {
	return fmt.Sprintf("po_%d_%s_m_%s", at.UnixMilli(), employeeID, randSuffix())
}

func randSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"

	// OutcomeRejected is a failure that never reached the gateway.
	OutcomeRejected Outcome = "rejected"
)

func (o Outcome) Succeeded() bool { return o == OutcomeSucceeded }

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonEmployeeNotFound  Reason = "employee_not_found"
	ReasonMissingEmployeeID Reason = "missing_employee_id"
	ReasonInvalidAmount     Reason = "invalid_amount"
	ReasonInvalidMedium     Reason = "invalid_medium"
	ReasonSendFailed        Reason = "send_failed"
)

// RowResult records what happened to one row of a batch.
type RowResult struct {
	Line       int
	EmployeeID string
	Amount     string
	Currency   string
	Date       string
	ExternalID string
	Outcome    Outcome
	Reason     Reason
	Detail     string
	Reference  string
}

// Rejected reports whether the row was refused before reaching the gateway.
func (r RowResult) Rejected() bool { return r.Outcome == OutcomeRejected }
