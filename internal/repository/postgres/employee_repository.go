package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/employee"
)

// EmployeeRepository implements employee.Repository using PostgreSQL.
type EmployeeRepository struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepository(pool *pgxpool.Pool) *EmployeeRepository {
	return &EmployeeRepository{pool: pool}
}

func (r *EmployeeRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

const employeeColumns = `id, name, email, phone, position, department, salary, status, photo, created_at, updated_at`

func scanEmployee(s scanner) (*employee.Employee, error) {
	e := &employee.Employee{}
	var status string
	err := s.Scan(&e.ID, &e.Name, &e.Email, &e.Phone, &e.Position, &e.Department,
		&e.Salary, &status, &e.Photo, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("scan employee: %w", err)
	}
	e.Status = employee.Status(status)
	return e, nil
}

func (r *EmployeeRepository) List(ctx context.Context, filter employee.ListFilter) ([]*employee.Employee, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Department != "" {
		args = append(args, filter.Department)
		where = append(where, fmt.Sprintf("department = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM employees`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count employees: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM employees%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		employeeColumns, clause, len(args)-1, len(args))

	employees, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

func (r *EmployeeRepository) All(ctx context.Context) ([]*employee.Employee, error) {
	return r.query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY id`)
}

func (r *EmployeeRepository) query(ctx context.Context, sql string, args ...any) ([]*employee.Employee, error) {
	rows, err := r.db(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var employees []*employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func (r *EmployeeRepository) Get(ctx context.Context, id string) (*employee.Employee, error) {
	return scanEmployee(r.db(ctx).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
}

func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	return scanEmployee(r.db(ctx).QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE email = $1`, strings.ToLower(email)))
}

func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO employees (`+employeeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Name, e.Email, e.Phone, e.Position, e.Department, e.Salary,
		string(e.Status), e.Photo, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := uniqueViolationOn(err); ok {
			if constraint == "employees_pkey" {
				return domainErrors.ErrEmployeeIDTaken
			}
			return domainErrors.ErrEmailTaken
		}
		return fmt.Errorf("insert employee %s: %w", e.ID, err)
	}
	return nil
}

func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE employees SET name = $2, email = $3, phone = $4, position = $5, department = $6,
		        salary = $7, status = $8, photo = $9, updated_at = $10
		 WHERE id = $1`,
		e.ID, e.Name, e.Email, e.Phone, e.Position, e.Department, e.Salary,
		string(e.Status), e.Photo, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrEmailTaken
		}
		return fmt.Errorf("update employee %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEmployeeNotFound
	}
	return nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEmployeeNotFound
	}
	return nil
}

// employeeSequenceLock serializes ID allocation until the caller's
// transaction ends.
const employeeSequenceLock int64 = 0x656d706c6f796565

// NextSequence must run inside the transaction that inserts the employee,
// otherwise the lock is released before the insert.
func (r *EmployeeRepository) NextSequence(ctx context.Context) (int, error) {
	db := r.db(ctx)
	if _, err := db.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, employeeSequenceLock); err != nil {
		return 0, fmt.Errorf("lock employee sequence: %w", err)
	}

	var next int
	err := db.QueryRow(ctx,
		`SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM 4) AS INTEGER)), 0) + 1
		 FROM employees WHERE id ~ '^EMP[0-9]+$'`,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next employee sequence: %w", err)
	}
	return next, nil
}
