package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/auth"
)

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles authentication operations
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo domain.UserRepository,
	tokens *auth.TokenManager,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterRequest creates an account. Role defaults to HOLDER.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest carries credentials
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult represents register, login and refresh responses
type AuthResult struct {
	UserID       int64  `json:"userId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"` // seconds
	TokenType    string `json:"tokenType"`
}

// Register creates a new user account. Only administrators may register
// AGENT or ADMIN accounts; caller may be nil for self-registration.
func (s *AuthService) Register(ctx context.Context, caller *domain.Principal, req RegisterRequest) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	role := domain.RoleHolder
	if strings.TrimSpace(req.Role) != "" {
		parsed, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, domain.NewValidationError("role", err.Error())
		}
		role = parsed
	}
	if role != domain.RoleHolder && (caller == nil || caller.Role != domain.RoleAdmin) {
		s.logger.Warn("privileged registration refused",
			slog.String("email", req.Email),
			slog.String("role", string(role)),
		)
		return nil, &domain.AccessDeniedError{Reason: "only administrators may register " + string(role) + " accounts"}
	}

	// Check if user already exists
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, &domain.DuplicateResourceError{Message: "email already registered"}
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	user := &domain.User{
		Email:        strings.TrimSpace(req.Email),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)
	return s.issue(user)
}

// Login authenticates a user and returns a JWT token pair
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Info("login attempt with non-existent email", slog.String("email", req.Email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("user logged in",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return s.issue(user)
}

// Refresh exchanges a refresh token for a new token pair. The user is
// reloaded so role changes take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateToken(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return s.issue(user)
}

// ChangePassword changes a user's password
func (s *AuthService) ChangePassword(ctx context.Context, principal *domain.Principal, oldPassword, newPassword string) error {
	if principal == nil {
		return &domain.AccessDeniedError{Reason: "no authenticated principal"}
	}
	if len(newPassword) < 8 {
		return domain.NewValidationError("newPassword", "must be at least 8 characters")
	}

	user, err := s.userRepo.GetByID(ctx, principal.ID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return domain.NewValidationError("oldPassword", "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return fmt.Errorf("failed to change password: %w", err)
	}

	user.PasswordHash = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("failed to update user password", slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("user changed password", slog.Int64("user_id", user.ID))
	return nil
}

// SeedUser creates a user with a known password unless the email exists
func (s *AuthService) SeedUser(ctx context.Context, email, fullName, password string, role domain.Role) error {
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.Create(ctx, &domain.User{Email: email, FullName: fullName, PasswordHash: string(hash), Role: role})
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	p := user.Principal()
	access, err := s.tokens.GenerateToken(p, auth.TokenAccess)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	refresh, err := s.tokens.GenerateToken(p, auth.TokenRefresh)
	if err != nil {
		s.logger.Error("failed to sign refresh token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         string(user.Role),
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		TokenType:    "Bearer",
	}, nil
}
