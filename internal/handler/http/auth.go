package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oakmart/storefront/pkg/httputil"
	"github.com/oakmart/storefront/pkg/validator"

	"github.com/oakmart/storefront/internal/auth"
	"github.com/oakmart/storefront/internal/service"
)

// AuthHandler handles HTTP requests for registration, login, and password
// recovery endpoints.
type AuthHandler struct {
	service      *service.UserService
	jwtManager   *auth.JWTManager
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler. secureCookie controls the
// Secure attribute on the session cookie and should be true outside dev.
func NewAuthHandler(svc *service.UserService, jwtManager *auth.JWTManager, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      svc,
		jwtManager:   jwtManager,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Avatar   string `json:"avatar" validate:"required"`
}

// LoginRequest is the JSON request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest is the JSON request body for requesting a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the JSON request body for completing a password reset.
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Register handles POST /api/v1/register
// On success the session token is set as an HTTP-only cookie and also
// returned in the body for non-browser clients.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Avatar payloads are base64, so allow a larger body than usual.
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, newBadBody(err), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, token, err := h.service.Register(r.Context(), &service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	auth.SetSessionCookie(w, token, h.jwtManager.Expiry(), h.secureCookie)
	httputil.WriteSuccess(w, http.StatusCreated, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}

// Login handles POST /api/v1/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, newBadBody(err), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), &service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	auth.SetSessionCookie(w, token, h.jwtManager.Expiry(), h.secureCookie)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}

// Logout handles GET /api/v1/logout
// Sessions are stateless, so logout just expires the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookie)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"message": "logged out"})
}

// ForgotPassword handles POST /api/v1/password/forgot
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, newBadBody(err), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "email sent to " + req.Email + " successfully",
	})
}

// ResetPassword handles PUT /api/v1/password/reset/{token}
// A successful reset logs the user in.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	resetToken := chi.URLParam(r, "token")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, newBadBody(err), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, token, err := h.service.ResetPassword(r.Context(), resetToken, req.Password, req.ConfirmPassword)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	auth.SetSessionCookie(w, token, h.jwtManager.Expiry(), h.secureCookie)
	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"user":  user,
		"token": token,
	})
}
