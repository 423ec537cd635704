package employee

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/staffdesk/hradmin/internal/domain/errors"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Employee is one entry of the company directory.
type Employee struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Position   string
	Department string
	Salary     int64
	Status     Status
	Photo      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Fields accepted when creating or updating an employee. Nil pointers are left untouched on update.
type Fields struct {
	Name       *string
	Email      *string
	Phone      *string
	Position   *string
	Department *string
	Salary     *int64
	Status     *Status
	Photo      *string
}

// FormatID renders the directory identifier for sequence number seq.
func FormatID(seq int) string {
	return fmt.Sprintf("EMP%03d", seq)
}

// ParseSequence extracts the numeric part of an EMPnnn identifier.
func ParseSequence(id string) (int, bool) {
	if !strings.HasPrefix(id, "EMP") {
		return 0, false
	}
	n, err := strconv.Atoi(id[3:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func NewEmployee(id string, f Fields) (*Employee, error) {
	e := &Employee{ID: id, Status: StatusActive}
	e.apply(f)
	if err := e.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	return e, nil
}

// Update applies the non-nil fields and re-validates the employee.
func (e *Employee) Update(f Fields) error {
	next := *e
	next.apply(f)
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = time.Now()
	*e = next
	return nil
}

func (e *Employee) apply(f Fields) {
	if f.Name != nil {
		e.Name = strings.TrimSpace(*f.Name)
	}
	if f.Email != nil {
		e.Email = strings.ToLower(strings.TrimSpace(*f.Email))
	}
	if f.Phone != nil {
		e.Phone = strings.TrimSpace(*f.Phone)
	}
	if f.Position != nil {
		e.Position = strings.TrimSpace(*f.Position)
	}
	if f.Department != nil {
		e.Department = strings.TrimSpace(*f.Department)
	}
	if f.Salary != nil {
		e.Salary = *f.Salary
	}
	if f.Status != nil {
		e.Status = *f.Status
	}
	if f.Photo != nil {
		e.Photo = *f.Photo
	}
}

func (e *Employee) Validate() error {
	switch {
	case e.ID == "":
		return errors.NewValidationError("id", "cannot be empty")
	case e.Name == "":
		return errors.NewValidationError("name", "cannot be empty")
	case e.Email == "":
		return errors.NewValidationError("email", "cannot be empty")
	case e.Phone == "":
		return errors.NewValidationError("phone", "cannot be empty")
	case e.Position == "":
		return errors.NewValidationError("position", "cannot be empty")
	case e.Department == "":
		return errors.NewValidationError("department", "cannot be empty")
	case e.Salary <= 0:
		return errors.NewValidationError("salary", "must be greater than 0")
	case !e.Status.Valid():
		return errors.NewValidationError("status", "must be Active or Inactive")
	}
	if _, err := mail.ParseAddress(e.Email); err != nil {
		return errors.NewValidationError("email", "must be a valid email address")
	}
	return nil
}

// Entry is the directory view of the employee used to address payouts.
func (e *Employee) Entry() DirectoryEntry {
	return DirectoryEntry{
		Phone:       e.Phone,
		Email:       e.Email,
		DisplayName: e.Name,
	}
}
