package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/staffdesk/hradmin/internal/domain/admin"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const adminColumns = `id, name, email, phone, password_hash, created_at`

func scanAdmin(s scanner) (*admin.Admin, error) {
	a := &admin.Admin{}
	if err := s.Scan(&a.ID, &a.Name, &a.Email, &a.Phone, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAdminNotFound
		}
		return nil, fmt.Errorf("scan admin: %w", err)
	}
	return a, nil
}

func (r *AdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*admin.Admin, error) {
	return scanAdmin(r.db(ctx).QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	return scanAdmin(r.db(ctx).QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = $1`, strings.ToLower(strings.TrimSpace(email))))
}

func (r *AdminRepository) Create(ctx context.Context, a *admin.Admin) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO admins (`+adminColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.Email, a.Phone, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrEmailTaken
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (r *AdminRepository) Update(ctx context.Context, a *admin.Admin) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE admins SET name = $2, email = $3, phone = $4, password_hash = $5 WHERE id = $1`,
		a.ID, a.Name, a.Email, a.Phone, a.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrEmailTaken
		}
		return fmt.Errorf("update admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAdminNotFound
	}
	return nil
}

func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
