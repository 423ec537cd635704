package service

import (
	"github.com/staffdesk/hradmin/internal/domain/admin"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// Controllers convert their HTTP DTOs to these types.

type Page struct {
	Page  int
	Limit int
	Total int
}

// Pages is the number of pages needed to show Total items.
func (p Page) Pages() int {
	if p.Limit <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}

type EmployeePage struct {
	Employees []*employee.Employee
	Page
}

type BatchPage struct {
	Batches []*payout.Batch
	Page
}

// UpdateProfileRequest changes the non-nil contact fields. The password only
// changes when NewPassword is set and CurrentPassword matches.
type UpdateProfileRequest struct {
	Name            *string
	Email           *string
	Phone           *string
	CurrentPassword string
	NewPassword     string
}

type LoginResult struct {
	Token string
	Admin *admin.Admin
}

type SubmitBatchRequest struct {
	FileName    string
	CSV         string
	Medium      string
	Date        string
	SubmittedBy string
}

type ManualPayoutRequest struct {
	EmployeeID string
	Amount     string
	Currency   string
	Medium     string
	Date       string
	Note       string
}

type ManualPayoutResult struct {
	ExternalID string
	EmployeeID string
	Amount     string
	Currency   string
	Medium     payout.Medium
	Date       string
	Status     string
	Message    string
	Reference  string
}

// RunFileRequest runs a CSV file without persistence. Directory replaces the
// employee repository as the source of contact details.
type RunFileRequest struct {
	FileName  string
	CSV       string
	Medium    string
	Date      string
	Directory employee.Directory
}

// normalizePage applies the listing defaults: page 1, limit 10, limit at most 100.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
