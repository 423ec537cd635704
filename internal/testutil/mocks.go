package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/staffdesk/hradmin/internal/domain/admin"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	"github.com/staffdesk/hradmin/internal/domain/outbox"
	"github.com/staffdesk/hradmin/internal/domain/payout"
)

// --- Employee Repository Mock ---

// MockEmployeeRepository is an in-memory employee.Repository.
type MockEmployeeRepository struct {
	mu        sync.Mutex
	employees map[string]*employee.Employee

	ListFunc         func(ctx context.Context, filter employee.ListFilter) ([]*employee.Employee, int, error)
	AllFunc          func(ctx context.Context) ([]*employee.Employee, error)
	GetFunc          func(ctx context.Context, id string) (*employee.Employee, error)
	CreateFunc       func(ctx context.Context, e *employee.Employee) error
	UpdateFunc       func(ctx context.Context, e *employee.Employee) error
	DeleteFunc       func(ctx context.Context, id string) error
	NextSequenceFunc func(ctx context.Context) (int, error)
}

func NewMockEmployeeRepository(seed ...*employee.Employee) *MockEmployeeRepository {
	m := &MockEmployeeRepository{employees: make(map[string]*employee.Employee)}
	for _, e := range seed {
		m.employees[e.ID] = e
	}
	return m
}

// newestFirst returns a sorted copy; ties on CreatedAt fall back to the ID, highest first.
func (m *MockEmployeeRepository) newestFirst() []*employee.Employee {
	out := make([]*employee.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MockEmployeeRepository) List(ctx context.Context, filter employee.ListFilter) ([]*employee.Employee, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*employee.Employee
	for _, e := range m.newestFirst() {
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		if filter.Status != nil && e.Status != *filter.Status {
			continue
		}
		matched = append(matched, e)
	}
	total := len(matched)
	if filter.Offset >= total {
		return []*employee.Employee{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (m *MockEmployeeRepository) All(ctx context.Context) ([]*employee.Employee, error) {
	if m.AllFunc != nil {
		return m.AllFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestFirst(), nil
}

func (m *MockEmployeeRepository) Get(ctx context.Context, id string) (*employee.Employee, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, domainErrors.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEmployeeRepository) GetByEmail(ctx context.Context, email string) (*employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if strings.EqualFold(e.Email, email) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrEmployeeNotFound
}

func (m *MockEmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[e.ID]; ok {
		return domainErrors.ErrEmployeeIDTaken
	}
	m.employees[e.ID] = e
	return nil
}

func (m *MockEmployeeRepository) Update(ctx context.Context, e *employee.Employee) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[e.ID]; !ok {
		return domainErrors.ErrEmployeeNotFound
	}
	m.employees[e.ID] = e
	return nil
}

func (m *MockEmployeeRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.employees[id]; !ok {
		return domainErrors.ErrEmployeeNotFound
	}
	delete(m.employees, id)
	return nil
}

func (m *MockEmployeeRepository) NextSequence(ctx context.Context) (int, error) {
	if m.NextSequenceFunc != nil {
		return m.NextSequenceFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	highest := 0
	for id := range m.employees {
		if n, ok := employee.ParseSequence(id); ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// --- Admin Repository Mock ---

type MockAdminRepository struct {
	mu     sync.Mutex
	admins map[uuid.UUID]*admin.Admin

	CreateFunc func(ctx context.Context, a *admin.Admin) error
	CountFunc  func(ctx context.Context) (int, error)
}

func NewMockAdminRepository(seed ...*admin.Admin) *MockAdminRepository {
	m := &MockAdminRepository{admins: make(map[uuid.UUID]*admin.Admin)}
	for _, a := range seed {
		m.admins[a.ID] = a
	}
	return m
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id uuid.UUID) (*admin.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, domainErrors.ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MockAdminRepository) GetByEmail(ctx context.Context, email string) (*admin.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrAdminNotFound
}

func (m *MockAdminRepository) Create(ctx context.Context, a *admin.Admin) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.ID] = a
	return nil
}

func (m *MockAdminRepository) Update(ctx context.Context, a *admin.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.ID]; !ok {
		return domainErrors.ErrAdminNotFound
	}
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *MockAdminRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admins), nil
}

// --- Batch Repository Mock ---

// MockBatchRepository is an in-memory payout.Repository. Stored batches are
// copies, so tests observe what was persisted rather than the live object.
type MockBatchRepository struct {
	mu      sync.Mutex
	batches map[uuid.UUID]payout.Batch
	rows    map[uuid.UUID][]payout.RowResult
	updates []payout.Progress

	CreateFunc         func(ctx context.Context, b *payout.Batch) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*payout.Batch, error)
	UpdateProgressFunc func(ctx context.Context, b *payout.Batch) error
}

func NewMockBatchRepository() *MockBatchRepository {
	return &MockBatchRepository{
		batches: make(map[uuid.UUID]payout.Batch),
		rows:    make(map[uuid.UUID][]payout.RowResult),
	}
}

func (m *MockBatchRepository) Create(ctx context.Context, b *payout.Batch) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = *b
	return nil
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*payout.Batch, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, domainErrors.ErrBatchNotFound
	}
	return &b, nil
}

func (m *MockBatchRepository) List(ctx context.Context, filter payout.ListFilter) ([]*payout.Batch, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*payout.Batch
	for _, b := range m.batches {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		cp := b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if filter.Offset >= total {
		return []*payout.Batch{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return out[filter.Offset:end], total, nil
}

func (m *MockBatchRepository) UpdateProgress(ctx context.Context, b *payout.Batch) error {
	if m.UpdateProgressFunc != nil {
		return m.UpdateProgressFunc(ctx, b)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[b.ID]; !ok {
		return domainErrors.ErrBatchNotFound
	}
	m.batches[b.ID] = *b
	m.updates = append(m.updates, b.Progress)
	return nil
}

func (m *MockBatchRepository) AddRowResult(ctx context.Context, batchID uuid.UUID, result payout.RowResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[batchID] = append(m.rows[batchID], result)
	return nil
}

func (m *MockBatchRepository) GetRowResults(ctx context.Context, batchID uuid.UUID) ([]payout.RowResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payout.RowResult(nil), m.rows[batchID]...), nil
}

// ProgressUpdates returns every persisted progress snapshot in order.
func (m *MockBatchRepository) ProgressUpdates() []payout.Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payout.Progress(nil), m.updates...)
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs fn directly unless WithTransactionFunc is set.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// --- Outbox Repository Mock ---

type MockOutboxRepository struct {
	mu      sync.Mutex
	Entries []*outbox.Entry

	InsertFunc        func(ctx context.Context, entry *outbox.Entry) error
	GetPendingFunc    func(ctx context.Context, limit int) ([]*outbox.Entry, error)
	MarkPublishedFunc func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc    func(ctx context.Context, id uuid.UUID) error
}

func (m *MockOutboxRepository) Insert(ctx context.Context, entry *outbox.Entry) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Entry, error) {
	if m.GetPendingFunc != nil {
		return m.GetPendingFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*outbox.Entry
	for _, e := range m.Entries {
		if e.Status == outbox.StatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.Status = outbox.StatusPublished
		}
	}
	return nil
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.ID == id {
			e.RetryCount++
			if e.Exhausted() {
				e.Status = outbox.StatusFailed
			}
		}
	}
	return nil
}

// --- Payout Sender Mock ---

// MockSender records every request and answers success unless SendFunc is set.
type MockSender struct {
	mu       sync.Mutex
	Requests []payout.Request

	SendFunc func(ctx context.Context, req payout.Request) (*payout.SendResult, error)
}

func (m *MockSender) Send(ctx context.Context, req payout.Request) (*payout.SendResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.SendFunc != nil {
		return m.SendFunc(ctx, req)
	}
	return &payout.SendResult{Status: "success", Message: "accepted", Reference: "ref-" + req.ExternalID}, nil
}

func (m *MockSender) Calls() []payout.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]payout.Request(nil), m.Requests...)
}
