package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/domain/admin"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	mocks "github.com/staffdesk/hradmin/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const jwtSecret = "test-secret-test-secret-test-secret"

func setupAuthService(t *testing.T, password string) (*AuthService, *admin.Admin) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	a, err := admin.NewAdmin("Root", "root@company.com", "+237600000000", string(hash))
	require.NoError(t, err)

	svc := NewAuthService(mocks.NewMockAdminRepository(a), jwtSecret, time.Hour, zerolog.New(io.Discard))
	return svc, a
}

func TestAuthService_Login_IssuesSignedToken(t *testing.T) {
	svc, a := setupAuthService(t, "s3cret")

	res, err := svc.Login(context.Background(), "Root@Company.com ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.Admin.ID)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (any, error) { return []byte(jwtSecret), nil })
	require.NoError(t, err)
	assert.Equal(t, a.ID.String(), claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAuthService_Login_Failures(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "root@company.com", "nope"},
		{"unknown email", "ghost@company.com", "s3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupAuthService(t, "s3cret")
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)
		})
	}
}

func TestAuthService_Me(t *testing.T) {
	svc, a := setupAuthService(t, "s3cret")

	got, err := svc.Me(context.Background(), a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, a.Email, got.Email)

	_, err = svc.Me(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domainErrors.ErrUnauthorized)

	_, err = svc.Me(context.Background(), "7d7c6f38-43a2-4b43-9df1-6b1f50a3f7a1")
	assert.ErrorIs(t, err, domainErrors.ErrUnauthorized)
}

func TestAuthService_EnsureDefaultAdmin(t *testing.T) {
	repo := mocks.NewMockAdminRepository()
	svc := NewAuthService(repo, jwtSecret, time.Hour, zerolog.New(io.Discard))
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx, "admin123")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureDefaultAdmin(ctx, "admin123")
	require.NoError(t, err)
	assert.False(t, created, "seeding runs only on an empty table")

	res, err := svc.Login(ctx, admin.DefaultEmail, "admin123")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := HashPassword("")
	var vErr *domainErrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestAuthService_UpdateProfile(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name    string
		req     UpdateProfileRequest
		wantErr error
		check   func(t *testing.T, got *admin.Admin)
	}{
		{
			name: "contact fields only",
			req:  UpdateProfileRequest{Name: ptr("Root Admin"), Phone: ptr("+237611111111")},
			check: func(t *testing.T, got *admin.Admin) {
				assert.Equal(t, "Root Admin", got.Name)
				assert.Equal(t, "+237611111111", got.Phone)
				assert.Equal(t, "root@company.com", got.Email)
			},
		},
		{
			name: "own email in other case",
			req:  UpdateProfileRequest{Email: ptr("ROOT@company.com")},
			check: func(t *testing.T, got *admin.Admin) {
				assert.Equal(t, "root@company.com", got.Email)
			},
		},
		{
			name:    "email of another admin",
			req:     UpdateProfileRequest{Email: ptr("Other@Company.com")},
			wantErr: domainErrors.ErrEmailTaken,
		},
		{
			name:    "wrong current password",
			req:     UpdateProfileRequest{CurrentPassword: "nope", NewPassword: "n3w-secret"},
			wantErr: domainErrors.ErrIncorrectPassword,
		},
		{
			name:    "missing current password",
			req:     UpdateProfileRequest{NewPassword: "n3w-secret"},
			wantErr: domainErrors.ErrIncorrectPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
			require.NoError(t, err)
			a, err := admin.NewAdmin("Root", "root@company.com", "+237600000000", string(hash))
			require.NoError(t, err)
			other, err := admin.NewAdmin("Other", "other@company.com", "", string(hash))
			require.NoError(t, err)
			repo := mocks.NewMockAdminRepository(a, other)
			svc := NewAuthService(repo, jwtSecret, time.Hour, zerolog.New(io.Discard))

			got, err := svc.UpdateProfile(context.Background(), a.ID.String(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				stored, gErr := repo.GetByID(context.Background(), a.ID)
				require.NoError(t, gErr)
				assert.Equal(t, a.Email, stored.Email)
				assert.Equal(t, a.PasswordHash, stored.PasswordHash)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)

			stored, err := repo.GetByID(context.Background(), a.ID)
			require.NoError(t, err)
			assert.Equal(t, got.Name, stored.Name)
		})
	}
}

func TestAuthService_UpdateProfile_ChangesPassword(t *testing.T) {
	svc, a := setupAuthService(t, "s3cret")
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, a.ID.String(), UpdateProfileRequest{CurrentPassword: "s3cret", NewPassword: "n3w-secret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "root@company.com", "s3cret")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "root@company.com", "n3w-secret")
	assert.NoError(t, err)
}

func TestAuthService_UpdateProfile_UnknownAdmin(t *testing.T) {
	svc, _ := setupAuthService(t, "s3cret")

	_, err := svc.UpdateProfile(context.Background(), "not-a-uuid", UpdateProfileRequest{})
	assert.ErrorIs(t, err, domainErrors.ErrUnauthorized)

	_, err = svc.UpdateProfile(context.Background(), "7d7c6f38-43a2-4b43-9df1-6b1f50a3f7a1", UpdateProfileRequest{})
	assert.ErrorIs(t, err, domainErrors.ErrAdminNotFound)
}
