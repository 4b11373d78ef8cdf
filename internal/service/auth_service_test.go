package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/security/auth"
)

type memUserRepo struct {
	byID    map[int64]*domain.User
	byEmail map[string]*domain.User
	nextID  int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int64]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	if _, ok := m.byEmail[strings.ToLower(u.Email)]; ok {
		return &domain.DuplicateResourceError{Message: "email already registered"}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	stored := *u
	m.byID[u.ID] = &stored
	m.byEmail[strings.ToLower(u.Email)] = &stored
	return nil
}
func (m *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		out := *u
		return &out, nil
	}
	return nil, &domain.NotFoundError{Resource: "user", ID: id}
}
func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[strings.ToLower(email)]; ok {
		out := *u
		return &out, nil
	}
	return nil, &domain.NotFoundError{Resource: "user", ID: email}
}
func (m *memUserRepo) Update(_ context.Context, u *domain.User) error {
	stored := *u
	m.byID[u.ID] = &stored
	m.byEmail[strings.ToLower(u.Email)] = &stored
	return nil
}

func newAuthService(repo domain.UserRepository) (*AuthService, *auth.TokenManager) {
	tm := auth.NewTokenManager("secret", "securelife", time.Minute)
	return NewAuthService(repo, tm, nil), tm
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s, tm := newAuthService(newMemUserRepo())

	// Register
	r, err := s.Register(ctx, nil, RegisterRequest{Email: "alice@example.com", FullName: "Alice", Password: "Password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if r.UserID == 0 || r.Token == "" || r.RefreshToken == "" {
		t.Fatalf("expected user id and tokens")
	}
	if r.Role != string(domain.RoleHolder) || r.ExpiresIn != 60 {
		t.Fatalf("unexpected result %+v", r)
	}
	claims, err := tm.ValidateToken(r.Token, auth.TokenAccess)
	if err != nil || claims.UserID != r.UserID || claims.Role != "HOLDER" {
		t.Fatalf("token does not carry identity: %+v, %v", claims, err)
	}

	// Duplicate email
	if _, err := s.Register(ctx, nil, RegisterRequest{Email: "ALICE@example.com", FullName: "Alice", Password: "Password123"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}

	// Login ok
	lr, err := s.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "Password123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" {
		t.Fatalf("expected token on login")
	}

	// Login wrong password
	if _, err := s.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "Wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
	// Unknown email gets the same answer
	if _, err := s.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "Password123"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials error, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newAuthService(newMemUserRepo())
	_, err := s.Register(context.Background(), nil, RegisterRequest{Email: "not-an-email", Password: "short"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"email", "fullName", "password"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected %s in %v", field, verr.Fields)
		}
	}
}

func TestRegisterPrivilegedRoles(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(newMemUserRepo())
	req := RegisterRequest{Email: "agent@example.com", FullName: "Agent", Password: "Password123", Role: "AGENT"}

	if _, err := s.Register(ctx, nil, req); !errors.Is(err, domain.ErrAccessDenied) {
		t.Fatalf("expected self-registration as agent to be denied, got %v", err)
	}
	admin := &domain.Principal{ID: 99, Role: domain.RoleAdmin}
	r, err := s.Register(ctx, admin, req)
	if err != nil || r.Role != "AGENT" {
		t.Fatalf("expected admin to register an agent, got %+v, %v", r, err)
	}

	client, err := s.Register(ctx, nil, RegisterRequest{Email: "c@example.com", FullName: "C", Password: "Password123", Role: "client"})
	if err != nil || client.Role != "HOLDER" {
		t.Fatalf("expected CLIENT to map to HOLDER, got %+v, %v", client, err)
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(newMemUserRepo())
	r, err := s.Register(ctx, nil, RegisterRequest{Email: "r@example.com", FullName: "R", Password: "Password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	refreshed, err := s.Refresh(ctx, r.RefreshToken)
	if err != nil || refreshed.Token == "" {
		t.Fatalf("refresh failed: %v", err)
	}
	if _, err := s.Refresh(ctx, r.Token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("access token must not refresh, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newAuthService(newMemUserRepo())
	reg, err := s.Register(ctx, nil, RegisterRequest{Email: "bob@example.com", FullName: "Bob", Password: "OldPass123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	p := &domain.Principal{ID: reg.UserID, Email: reg.Email, Role: domain.RoleHolder}

	// Wrong old password
	if err := s.ChangePassword(ctx, p, "bad", "NewPass123"); err == nil {
		t.Fatalf("expected wrong old password error")
	}
	// Good change
	if err := s.ChangePassword(ctx, p, "OldPass123", "NewPass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	// Old password should no longer work
	if _, err := s.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "OldPass123"}); err == nil {
		t.Fatalf("expected old password to fail after change")
	}
	// New password works
	if _, err := s.Login(ctx, LoginRequest{Email: "bob@example.com", Password: "NewPass123"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestSeedUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	s, _ := newAuthService(repo)
	for i := 0; i < 2; i++ {
		if err := s.SeedUser(ctx, "admin@securelife.local", "Admin", "admin12345", domain.RoleAdmin); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one seeded user, got %d", len(repo.byID))
	}
}
