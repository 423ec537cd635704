package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/domain/admin"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	admins admin.Repository
	secret []byte
	expiry time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

func NewAuthService(admins admin.Repository, jwtSecret string, expiry time.Duration, logger zerolog.Logger) *AuthService {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &AuthService{
		admins: admins,
		secret: []byte(jwtSecret),
		expiry: expiry,
		now:    time.Now,
		logger: logger.With().Str("component", "auth_service").Logger(),
	}
}

// Login checks the credentials and issues a signed token whose subject is the admin ID.
// Unknown emails and wrong passwords return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	a, err := s.admins.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domainErrors.ErrAdminNotFound) {
		return nil, domainErrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn().Str("email", a.Email).Msg("Failed login attempt")
		return nil, domainErrors.ErrInvalidCredentials
	}

	token, err := s.issueToken(a)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("admin_id", a.ID.String()).Msg("Admin logged in")
	return &LoginResult{Token: token, Admin: a}, nil
}

func (s *AuthService) issueToken(a *admin.Admin) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   a.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		Issuer:    "hradmin",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Me resolves the admin behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, adminID string) (*admin.Admin, error) {
	id, err := uuid.Parse(adminID)
	if err != nil {
		return nil, domainErrors.ErrUnauthorized
	}
	a, err := s.admins.GetByID(ctx, id)
	if errors.Is(err, domainErrors.ErrAdminNotFound) {
		return nil, domainErrors.ErrUnauthorized
	}
	return a, err
}

// UpdateProfile edits the contact details of the calling admin and, when
// asked, rotates the password after checking the current one.
func (s *AuthService) UpdateProfile(ctx context.Context, adminID string, req UpdateProfileRequest) (*admin.Admin, error) {
	id, err := uuid.Parse(adminID)
	if err != nil {
		return nil, domainErrors.ErrUnauthorized
	}
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			s.logger.Warn().Str("admin_id", adminID).Msg("Password change with wrong current password")
			return nil, domainErrors.ErrIncorrectPassword
		}
		hash, err := HashPassword(req.NewPassword)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != a.Email {
			other, err := s.admins.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != a.ID:
				return nil, domainErrors.ErrEmailTaken
			case err != nil && !errors.Is(err, domainErrors.ErrAdminNotFound):
				return nil, err
			}
		}
	}

	if err := a.UpdateProfile(req.Name, req.Email, req.Phone); err != nil {
		return nil, err
	}
	if err := s.admins.Update(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info().Str("admin_id", adminID).Bool("password_changed", req.NewPassword != "").Msg("Admin profile updated")
	return a, nil
}

// EnsureDefaultAdmin seeds admin.DefaultEmail when no admin exists yet.
// It reports whether an account was created.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, password string) (bool, error) {
	n, err := s.admins.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	a, err := admin.NewAdmin("Administrator", admin.DefaultEmail, "", hash)
	if err != nil {
		return false, err
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return false, err
	}
	s.logger.Warn().Str("email", a.Email).Msg("Seeded default admin account, change its password")
	return true, nil
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", domainErrors.NewValidationError("password", "cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
