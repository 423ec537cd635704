package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/domain/admin"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/infrastructure/config"
	"github.com/staffdesk/hradmin/internal/repository/postgres"
	"github.com/staffdesk/hradmin/internal/service"
	"github.com/staffdesk/hradmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "router-test-secret-router-test-secret"
	testPassword = "admin123"
)

type idempotencyMemory struct {
	mu      sync.Mutex
	entries map[string]*postgres.IdempotencyEntry
}

func (s *idempotencyMemory) Reserve(_ context.Context, key, path string, expiresAt time.Time) (*postgres.IdempotencyEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		cp := *e
		return &cp, false, nil
	}
	s.entries[key] = &postgres.IdempotencyEntry{Key: key, RequestPath: path, ExpiresAt: expiresAt}
	return nil, true, nil
}

func (s *idempotencyMemory) Complete(_ context.Context, e *postgres.IdempotencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Key] = e
	return nil
}

func (s *idempotencyMemory) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

type testServer struct {
	handler   http.Handler
	employees *testutil.MockEmployeeRepository
	batches   *testutil.MockBatchRepository
	outbox    *testutil.MockOutboxRepository
	sender    *testutil.MockSender
	admin     *admin.Admin
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.New(io.Discard)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := admin.NewAdmin("Root", admin.DefaultEmail, "", string(hash))
	require.NoError(t, err)

	ts := &testServer{
		employees: testutil.NewMockEmployeeRepository(
			testutil.NewTestEmployee("EMP001", "Ada"),
			testutil.NewTestEmployee("EMP002", "Grace"),
		),
		batches: testutil.NewMockBatchRepository(),
		outbox:  &testutil.MockOutboxRepository{},
		sender:  &testutil.MockSender{},
		admin:   a,
	}
	tx := testutil.NewMockTransactionManager()
	employeeService := service.NewEmployeeService(ts.employees, tx, logger)

	ts.handler = NewRouter(RouterDeps{
		AuthService:        service.NewAuthService(testutil.NewMockAdminRepository(a), testSecret, time.Hour, logger),
		EmployeeService:    employeeService,
		PayoutService:      service.NewPayoutService(ts.batches, employeeService, ts.outbox, tx, ts.sender, logger),
		IdempotencyStore:   &idempotencyMemory{entries: map[string]*postgres.IdempotencyEntry{}},
		IdempotencyTTL:     time.Hour,
		CORSConfig:         config.CORSConfig{AllowedOrigins: []string{"*"}},
		JWTSecret:          testSecret,
		LoginRatePerMinute: 100,
		MaxUploadBytes:     1 << 10,
	})
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	body := `{"email":"` + admin.DefaultEmail + `","password":"` + testPassword + `"}`
	w := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (ts *testServer) authed(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+ts.token(t))
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRouter_MobileHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/mobile/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/auth/me"},
		{http.MethodPut, "/api/v1/admin/profile"},
		{http.MethodGet, "/api/v1/admin/employees"},
		{http.MethodPost, "/api/v1/payouts"},
		{http.MethodPost, "/api/v1/payouts/batches"},
		{http.MethodGet, "/api/v1/payouts/template"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			w := ts.do(t, httptest.NewRequest(p.method, p.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_Login(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"wrong password", `{"email":"admin@company.com","password":"nope"}`, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown email", `{"email":"ghost@company.com","password":"admin123"}`, http.StatusUnauthorized, "invalid_credentials"},
		{"malformed email", `{"email":"admin","password":"admin123"}`, http.StatusBadRequest, "validation_error"},
		{"missing password", `{"email":"admin@company.com"}`, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", strings.NewReader(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestRouter_Me(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/admin/auth/me", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[AdminResponse](t, w)
	assert.Equal(t, ts.admin.ID.String(), resp.ID)
	assert.Equal(t, admin.DefaultEmail, resp.Email)
}

func TestRouter_UpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/profile", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		return ts.do(t, req)
	}

	rejected := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"wrong current password", `{"current_password":"nope","new_password":"n3w-secret"}`, http.StatusBadRequest, "incorrect_password"},
		{"malformed email", `{"email":"not-an-email"}`, http.StatusBadRequest, "validation_error"},
		{"short new password", `{"current_password":"admin123","new_password":"x"}`, http.StatusBadRequest, "validation_error"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			w := put(tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, w).Code)
		})
	}

	w := put(`{"name":"Head of HR","phone":"+237622222222","current_password":"admin123","new_password":"n3w-secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ProfileResponse](t, w)
	assert.Equal(t, "Head of HR", resp.Admin.Name)
	assert.Equal(t, "+237622222222", resp.Admin.Phone)
	assert.Equal(t, admin.DefaultEmail, resp.Admin.Email)

	login := `{"email":"` + admin.DefaultEmail + `","password":"n3w-secret"}`
	w = ts.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", strings.NewReader(login)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_EmployeeLifecycle(t *testing.T) {
	ts := newTestServer(t)

	create := `{"name":"Linus","email":"linus@company.com","phone":"+237600000009","position":"Engineer","department":"Platform","salary":500000}`
	w := ts.do(t, ts.authed(t, http.MethodPost, "/api/v1/admin/employees", strings.NewReader(create)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[EmployeeResponse](t, w)
	assert.Equal(t, "EMP003", created.ID)
	assert.Equal(t, "Active", created.Status)

	w = ts.do(t, ts.authed(t, http.MethodPost, "/api/v1/admin/employees", strings.NewReader(create)))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_taken", decode[ErrorResponse](t, w).Code)

	w = ts.do(t, ts.authed(t, http.MethodPut, "/api/v1/admin/employees/EMP003", strings.NewReader(`{"department":"Finance","status":"Inactive"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[EmployeeResponse](t, w)
	assert.Equal(t, "Finance", updated.Department)
	assert.Equal(t, "Inactive", updated.Status)
	assert.Equal(t, "Linus", updated.Name)

	w = ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/admin/employees?status=Inactive", nil))
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[EmployeeListResponse](t, w)
	require.Len(t, list.Employees, 1)
	assert.Equal(t, "EMP003", list.Employees[0].ID)

	w = ts.do(t, ts.authed(t, http.MethodDelete, "/api/v1/admin/employees/EMP003", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/admin/employees/EMP003", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_ListEmployees_Pagination(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/admin/employees?page=1&limit=1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	list := decode[EmployeeListResponse](t, w)
	assert.Len(t, list.Employees, 1)
	assert.Equal(t, PaginationResponse{Page: 1, Limit: 1, Total: 2, Pages: 2}, list.Pagination)
}

func TestRouter_ListEmployees_InvalidStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/admin/employees?status=Retired", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "status", decode[ErrorResponse](t, w).Field)
}

func TestRouter_ManualPayout(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, ts.authed(t, http.MethodPost, "/api/v1/payouts", strings.NewReader(`{"employee_id":"EMP001","amount":"25000.50","currency":"XAF"}`)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ManualPayoutResponse](t, w)
	assert.Equal(t, "EMP001", resp.EmployeeID)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "mobile money", resp.Medium)
	assert.NotEmpty(t, resp.ExternalID)
	require.Len(t, ts.sender.Calls(), 1)
	assert.Equal(t, "+237600EMP001", ts.sender.Calls()[0].Phone)
}

func TestRouter_ManualPayout_IdempotentReplay(t *testing.T) {
	ts := newTestServer(t)
	body := `{"employee_id":"EMP002","amount":1000}`

	first := ts.authed(t, http.MethodPost, "/api/v1/payouts", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "payout-1")
	w1 := ts.do(t, first)
	require.Equal(t, http.StatusOK, w1.Code, w1.Body.String())

	second := ts.authed(t, http.MethodPost, "/api/v1/payouts", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "payout-1")
	w2 := ts.do(t, second)

	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, "true", w2.Header().Get("X-Idempotency-Replayed"))
	assert.JSONEq(t, w1.Body.String(), w2.Body.String())
	assert.Len(t, ts.sender.Calls(), 1)
}

func TestRouter_ManualPayout_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		sendErr    error
		wantStatus int
		wantCode   string
	}{
		{"unknown employee", `{"employee_id":"EMP404","amount":1000}`, nil, http.StatusNotFound, "not_found"},
		{"missing employee", `{"amount":1000}`, nil, http.StatusBadRequest, "validation_error"},
		{"non numeric amount", `{"employee_id":"EMP001","amount":"lots"}`, nil, http.StatusBadRequest, "validation_error"},
		{"bad date", `{"employee_id":"EMP001","amount":10,"date":"30/09/2024"}`, nil, http.StatusBadRequest, "validation_error"},
		{"gateway down", `{"employee_id":"EMP001","amount":10}`, errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tt.sendErr != nil {
				ts.sender.SendFunc = func(context.Context, payout.Request) (*payout.SendResult, error) {
					return nil, tt.sendErr
				}
			}

			w := ts.do(t, ts.authed(t, http.MethodPost, "/api/v1/payouts", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, w).Code)
		})
	}
}

func TestRouter_ManualPayout_ProviderRejection(t *testing.T) {
	ts := newTestServer(t)
	ts.sender.SendFunc = func(context.Context, payout.Request) (*payout.SendResult, error) {
		return &payout.SendResult{Status: "failed", Message: "wallet closed"}, nil
	}

	w := ts.do(t, ts.authed(t, http.MethodPost, "/api/v1/payouts", strings.NewReader(`{"employee_id":"EMP001","amount":10}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "payout_rejected", resp.Code)
	assert.Contains(t, resp.Error, "wallet closed")
}

func multipartUpload(t *testing.T, fileName, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

const batchCSV = "employee_id,amount,currency,date,note\nEMP001,1000,XAF,,\nEMP002,2000,XAF,,\n"

func TestRouter_SubmitBatch_Multipart(t *testing.T) {
	ts := newTestServer(t)
	body, contentType := multipartUpload(t, "september.csv", batchCSV, map[string]string{"medium": "orange money", "date": "2024-09-30"})

	req := ts.authed(t, http.MethodPost, "/api/v1/payouts/batches", body)
	req.Header.Set("Content-Type", contentType)
	w := ts.do(t, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[BatchResponse](t, w)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "september.csv", resp.FileName)
	assert.Equal(t, "orange money", resp.Medium)
	assert.Equal(t, "2024-09-30", resp.DefaultDate)
	assert.Equal(t, 2, resp.Progress.Total)
	assert.Equal(t, ts.admin.ID.String(), resp.SubmittedBy)
	assert.Len(t, ts.outbox.Entries, 1)
	assert.Empty(t, ts.sender.Calls(), "rows are dispatched by the worker")
}

func TestRouter_SubmitBatch_RawBody(t *testing.T) {
	ts := newTestServer(t)

	req := ts.authed(t, http.MethodPost, "/api/v1/payouts/batches?file_name=raw.csv", strings.NewReader(batchCSV))
	req.Header.Set("Content-Type", "text/csv")
	w := ts.do(t, req)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[BatchResponse](t, w)
	assert.Equal(t, "raw.csv", resp.FileName)
	assert.Equal(t, "mobile money", resp.Medium)
}

func TestRouter_SubmitBatch_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		content  string
		fields   map[string]string
		wantCode string
	}{
		{"header only", "empty.csv", "employee_id,amount,currency,date,note\n", nil, "empty_batch"},
		{"wrong extension", "payouts.xlsx", batchCSV, nil, "validation_error"},
		{"unknown medium", "payouts.csv", batchCSV, map[string]string{"medium": "carrier pigeon"}, "validation_error"},
		{"too large", "big.csv", batchCSV + strings.Repeat("EMP001,1,XAF,,\n", 200), nil, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			body, contentType := multipartUpload(t, tt.fileName, tt.content, tt.fields)

			req := ts.authed(t, http.MethodPost, "/api/v1/payouts/batches", body)
			req.Header.Set("Content-Type", contentType)
			w := ts.do(t, req)

			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, w).Code)
			assert.Empty(t, ts.outbox.Entries)
		})
	}
}

func TestRouter_BatchQueries(t *testing.T) {
	ts := newTestServer(t)
	batch := testutil.NewTestBatch(batchCSV)
	require.NoError(t, ts.batches.Create(context.Background(), batch))
	require.NoError(t, ts.batches.AddRowResult(context.Background(), batch.ID, payout.RowResult{
		Line: 2, EmployeeID: "EMP001", Amount: "1000", Outcome: payout.OutcomeSucceeded, Reference: "ref-1",
	}))

	w := ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/payouts/batches/"+batch.ID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, batch.ID.String(), decode[BatchResponse](t, w).ID)

	w = ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/payouts/batches/"+batch.ID.String()+"/rows", nil))
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]RowResultResponse](t, w)
	require.Len(t, rows, 1)
	assert.Equal(t, "succeeded", rows[0].Outcome)

	w = ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/payouts/batches?status=pending", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[BatchListResponse](t, w).Batches, 1)

	w = ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/payouts/batches/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/payouts/batches/00000000-0000-0000-0000-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Template(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, ts.authed(t, http.MethodGet, "/api/v1/payouts/template", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payout_template.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "employee_id,amount,currency,date,note\n"))
}

func TestHealthController_Readiness(t *testing.T) {
	down := PingFunc(func(context.Context) error { return errors.New("down") })
	up := PingFunc(func(context.Context) error { return nil })

	tests := []struct {
		name       string
		db, redis  Pinger
		wantStatus int
		wantReason string
	}{
		{"all up", up, up, http.StatusOK, ""},
		{"database down", down, up, http.StatusServiceUnavailable, "database unavailable"},
		{"redis down", up, down, http.StatusServiceUnavailable, "redis unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthController(tt.db, tt.redis)
			w := httptest.NewRecorder()
			h.Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantReason, decode[map[string]string](t, w)["reason"])
		})
	}
}
