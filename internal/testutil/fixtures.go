package testutil

import (
	"strings"
	"time"

	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// NewTestEmployee builds a valid active employee with a phone and email derived from id.
func NewTestEmployee(id, name string) *employee.Employee {
	now := time.Now()
	return &employee.Employee{
		ID:         id,
		Name:       name,
		Email:      strings.ToLower(id) + "@company.com",
		Phone:      "+237600" + id,
		Position:   "Engineer",
		Department: "Engineering",
		Salary:     450000,
		Status:     employee.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewTestBatch builds a pending mobile money batch over csv.
func NewTestBatch(csv string) *payout.Batch {
	b, err := payout.NewBatch("payouts.csv", csv, payout.MediumMobileMoney, "2024-01-01", "admin@company.com")
	if err != nil {
		panic(err)
	}
	return b
}

func StringPtr(s string) *string { return &s }

func Int64Ptr(v int64) *int64 { return &v }
