package controller

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staffdesk/hradmin/internal/domain/admin"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/service"
)

// --- Request DTOs ---
// Controllers convert these to service or domain types before calling business logic.

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest mirrors the profile form. Empty strings leave a field unchanged.
type UpdateProfileRequest struct {
	Name            string `json:"name" validate:"max=255"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"max=50"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"omitempty,min=6"`
}

func (r UpdateProfileRequest) ToService() service.UpdateProfileRequest {
	out := service.UpdateProfileRequest{CurrentPassword: r.CurrentPassword, NewPassword: r.NewPassword}
	if r.Name != "" {
		out.Name = &r.Name
	}
	if r.Email != "" {
		out.Email = &r.Email
	}
	if r.Phone != "" {
		out.Phone = &r.Phone
	}
	return out
}

type CreateEmployeeRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Position   string `json:"position" validate:"required"`
	Department string `json:"department" validate:"required"`
	Salary     int64  `json:"salary" validate:"required,gt=0"`
	Status     string `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Photo      string `json:"photo"`
}

func (r CreateEmployeeRequest) Fields() employee.Fields {
	f := employee.Fields{
		Name:       &r.Name,
		Email:      &r.Email,
		Phone:      &r.Phone,
		Position:   &r.Position,
		Department: &r.Department,
		Salary:     &r.Salary,
		Photo:      &r.Photo,
	}
	if r.Status != "" {
		st := employee.Status(r.Status)
		f.Status = &st
	}
	return f
}

// UpdateEmployeeRequest is a partial update: absent fields are left unchanged.
type UpdateEmployeeRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,min=1"`
	Position   *string `json:"position" validate:"omitempty,min=1"`
	Department *string `json:"department" validate:"omitempty,min=1"`
	Salary     *int64  `json:"salary" validate:"omitempty,gt=0"`
	Status     *string `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Photo      *string `json:"photo"`
}

func (r UpdateEmployeeRequest) Fields() employee.Fields {
	f := employee.Fields{
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		Position:   r.Position,
		Department: r.Department,
		Salary:     r.Salary,
		Photo:      r.Photo,
	}
	if r.Status != nil {
		st := employee.Status(*r.Status)
		f.Status = &st
	}
	return f
}

// ManualPayoutRequest accepts the amount as a JSON number or a numeric string.
type ManualPayoutRequest struct {
	EmployeeID string      `json:"employee_id" validate:"required"`
	Amount     json.Number `json:"amount" validate:"required"`
	Currency   string      `json:"currency" validate:"omitempty,len=3"`
	Medium     string      `json:"medium"`
	Date       string      `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note       string      `json:"note" validate:"omitempty,max=255"`
}

// --- Response DTOs ---

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

type PaginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func FromPage(p service.Page) PaginationResponse {
	return PaginationResponse{Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages()}
}

type AdminResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func FromAdmin(a *admin.Admin) *AdminResponse {
	return &AdminResponse{ID: a.ID.String(), Name: a.Name, Email: a.Email, Phone: a.Phone}
}

type ProfileResponse struct {
	Admin *AdminResponse `json:"admin"`
}

type LoginResponse struct {
	Token string         `json:"token"`
	Admin *AdminResponse `json:"admin"`
}

type EmployeeResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Position   string    `json:"position"`
	Department string    `json:"department"`
	Salary     int64     `json:"salary"`
	Status     string    `json:"status"`
	Photo      string    `json:"photo,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func FromEmployee(e *employee.Employee) *EmployeeResponse {
	return &EmployeeResponse{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Phone:      e.Phone,
		Position:   e.Position,
		Department: e.Department,
		Salary:     e.Salary,
		Status:     string(e.Status),
		Photo:      e.Photo,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

type EmployeeListResponse struct {
	Employees  []*EmployeeResponse `json:"employees"`
	Pagination PaginationResponse  `json:"pagination"`
}

type ProgressResponse struct {
	Total     int `json:"total"`
	Done      int `json:"done"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

type BatchResponse struct {
	ID          string           `json:"id"`
	FileName    string           `json:"file_name"`
	Medium      string           `json:"medium"`
	DefaultDate string           `json:"default_date"`
	Status      string           `json:"status"`
	Progress    ProgressResponse `json:"progress"`
	Summary     string           `json:"summary,omitempty"`
	SubmittedBy string           `json:"submitted_by,omitempty"`
	LastError   *string          `json:"last_error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// FromBatch converts a batch. The summary line is set once the batch is terminal.
func FromBatch(b *payout.Batch) *BatchResponse {
	resp := &BatchResponse{
		ID:          b.ID.String(),
		FileName:    b.FileName,
		Medium:      string(b.Medium),
		DefaultDate: b.DefaultDate,
		Status:      string(b.Status),
		Progress: ProgressResponse{
			Total:     b.Progress.Total,
			Done:      b.Progress.Done,
			Succeeded: b.Progress.Succeeded,
			Failed:    b.Progress.Failed,
			Remaining: b.Progress.Remaining(),
		},
		SubmittedBy: b.SubmittedBy,
		LastError:   b.LastError,
		CreatedAt:   b.CreatedAt,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
	}
	if b.IsTerminal() {
		resp.Summary = b.Summary().String()
	}
	return resp
}

type BatchListResponse struct {
	Batches    []*BatchResponse   `json:"batches"`
	Pagination PaginationResponse `json:"pagination"`
}

type RowResultResponse struct {
	Line       int    `json:"line"`
	EmployeeID string `json:"employee_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	Date       string `json:"date"`
	ExternalID string `json:"external_id,omitempty"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

func FromRowResult(r payout.RowResult) RowResultResponse {
	return RowResultResponse{
		Line:       r.Line,
		EmployeeID: r.EmployeeID,
		Amount:     r.Amount,
		Currency:   r.Currency,
		Date:       r.Date,
		ExternalID: r.ExternalID,
		Outcome:    string(r.Outcome),
		Reason:     string(r.Reason),
		Detail:     r.Detail,
		Reference:  r.Reference,
	}
}

type ManualPayoutResponse struct {
	ExternalID string `json:"external_id"`
	EmployeeID string `json:"employee_id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	Medium     string `json:"medium"`
	Date       string `json:"date"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Reference  string `json:"reference,omitempty"`
}

func FromManualPayout(r *service.ManualPayoutResult) *ManualPayoutResponse {
	return &ManualPayoutResponse{
		ExternalID: r.ExternalID,
		EmployeeID: r.EmployeeID,
		Amount:     displayAmount(r.Amount),
		Currency:   r.Currency,
		Medium:     string(r.Medium),
		Date:       r.Date,
		Status:     r.Status,
		Message:    r.Message,
		Reference:  r.Reference,
	}
}

// displayAmount normalizes a numeric amount ("2500.50" -> "2500.5"); other
// input is returned as given.
func displayAmount(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
