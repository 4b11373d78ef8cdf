package handler

import (
	"log/slog"
	"net/http"

	"github.com/khaliloulah1/securelife/internal/security/audit"
	"github.com/khaliloulah1/securelife/internal/security/middleware"
	"github.com/khaliloulah1/securelife/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
	audit       *audit.Logger
	errs        errorWriter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	errs := newErrorWriter(logger, auditLog)
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		audit:       errs.audit,
		errs:        errs,
	}
}

// Routes registers the auth endpoints
func (h *AuthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", h.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.Refresh)
	mux.HandleFunc("POST /api/v1/auth/password", h.ChangePassword)
}

// Register handles POST /api/v1/auth/register. A bearer token is optional;
// an administrator's token allows registering agents and administrators.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), middleware.GetPrincipal(r.Context()), req)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, result)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.audit.LogLogin(r.Context(), req.Email, "failed")
		h.errs.write(w, r, err)
		return
	}

	h.audit.LogLogin(r.Context(), req.Email, "success")
	writeJSON(w, h.logger, http.StatusOK, result)
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	result, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

// ChangePasswordRequest represents change password request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword handles POST /api/v1/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeJSON(w, h.logger, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req ChangePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	if err := h.authService.ChangePassword(r.Context(), principal, req.OldPassword, req.NewPassword); err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "password changed successfully"})
}
