package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/pkg/retry"
)

// createRetry re-runs an employee insert that lost the ID race.
var createRetry = retry.Config{
	MaxAttempts:  3,
	InitialDelay: 10 * time.Millisecond,
	MaxDelay:     100 * time.Millisecond,
	RetryIf:      func(err error) bool { return errors.Is(err, domainErrors.ErrEmployeeIDTaken) },
}

type EmployeeService struct {
	repo      employee.Repository
	txManager TransactionManager
	logger    zerolog.Logger
}

func NewEmployeeService(repo employee.Repository, txManager TransactionManager, logger zerolog.Logger) *EmployeeService {
	return &EmployeeService{
		repo:      repo,
		txManager: txManager,
		logger:    logger.With().Str("component", "employee_service").Logger(),
	}
}

// List returns one page of employees, newest first.
func (s *EmployeeService) List(ctx context.Context, page, limit int, filter employee.ListFilter) (*EmployeePage, error) {
	page, limit = normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	employees, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &EmployeePage{
		Employees: employees,
		Page:      Page{Page: page, Limit: limit, Total: total},
	}, nil
}

func (s *EmployeeService) Get(ctx context.Context, id string) (*employee.Employee, error) {
	return s.repo.Get(ctx, id)
}

// Create assigns the next EMPnnn identifier and stores the employee. The
// email must not belong to anyone else.
func (s *EmployeeService) Create(ctx context.Context, f employee.Fields) (*employee.Employee, error) {
	cfg := createRetry
	cfg.OnRetry = func(attempt uint, err error) {
		s.logger.Warn().Err(err).Uint("attempt", attempt).Msg("Employee ID taken concurrently, allocating again")
	}
	created, err := retry.DoWithResult(ctx, cfg, func() (*employee.Employee, error) {
		return s.create(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("employee_id", created.ID).Str("department", created.Department).Msg("Employee created")
	return created, nil
}

func (s *EmployeeService) create(ctx context.Context, f employee.Fields) (*employee.Employee, error) {
	var created *employee.Employee
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if f.Email != nil {
			if err := s.ensureEmailFree(txCtx, *f.Email, ""); err != nil {
				return err
			}
		}

		seq, err := s.repo.NextSequence(txCtx)
		if err != nil {
			return err
		}
		e, err := employee.NewEmployee(employee.FormatID(seq), f)
		if err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, e); err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update. Only the provided fields change.
func (s *EmployeeService) Update(ctx context.Context, id string, f employee.Fields) (*employee.Employee, error) {
	var updated *employee.Employee
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		e, err := s.repo.Get(txCtx, id)
		if err != nil {
			return err
		}
		if f.Email != nil {
			if err := s.ensureEmailFree(txCtx, *f.Email, id); err != nil {
				return err
			}
		}
		if err := e.Update(f); err != nil {
			return err
		}
		if err := s.repo.Update(txCtx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *EmployeeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("employee_id", id).Msg("Employee deleted")
	return nil
}

// Snapshot captures the whole directory for one batch run.
func (s *EmployeeService) Snapshot(ctx context.Context) (*employee.Snapshot, error) {
	employees, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return employee.NewSnapshot(employees), nil
}

func (s *EmployeeService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domainErrors.ErrEmployeeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return domainErrors.ErrEmailTaken
	}
	return nil
}
