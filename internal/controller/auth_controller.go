package controller

import (
	"net/http"

	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/middleware"
	"github.com/staffdesk/hradmin/internal/service"
)

type AuthController struct {
	auth *service.AuthService
}

func NewAuthController(auth *service.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Login handles POST /api/v1/admin/auth/login
func (h *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{Token: result.Token, Admin: FromAdmin(result.Admin)})
}

// Me handles GET /api/v1/admin/auth/me
func (h *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	a, err := h.auth.Me(r.Context(), adminID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromAdmin(a))
}

// UpdateProfile handles PUT /api/v1/admin/profile
func (h *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.GetAdminID(r.Context())
	if !ok {
		writeError(w, domainErrors.ErrUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.auth.UpdateProfile(r.Context(), adminID, req.ToService())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{Admin: FromAdmin(a)})
}

// Logout handles POST /api/v1/admin/auth/logout. Tokens are stateless, so
// the client simply discards its copy.
func (h *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
