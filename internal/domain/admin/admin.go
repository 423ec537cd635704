package admin

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/staffdesk/hradmin/internal/domain/errors"
)

// DefaultEmail is the account seeded on an empty admins table.
const DefaultEmail = "admin@company.com"

type Admin struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

func NewAdmin(name, email, phone, passwordHash string) (*Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.NewValidationError("email", "cannot be empty")
	}
	if passwordHash == "" {
		return nil, errors.NewValidationError("password", "cannot be empty")
	}
	return &Admin{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}, nil
}

// UpdateProfile changes the non-nil contact fields. Email stays mandatory.
func (a *Admin) UpdateProfile(name, email, phone *string) error {
	next := *a
	if name != nil {
		next.Name = strings.TrimSpace(*name)
	}
	if email != nil {
		next.Email = strings.ToLower(strings.TrimSpace(*email))
		if next.Email == "" {
			return errors.NewValidationError("email", "cannot be empty")
		}
	}
	if phone != nil {
		next.Phone = strings.TrimSpace(*phone)
	}
	*a = next
	return nil
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	Create(ctx context.Context, a *Admin) error
	Update(ctx context.Context, a *Admin) error
	Count(ctx context.Context) (int, error)
}
