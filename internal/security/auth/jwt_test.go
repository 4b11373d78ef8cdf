package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
)

func TestGenerateAndValidate(t *testing.T) {
	tm := NewTokenManager("secret", "securelife", time.Minute)
	p := domain.Principal{ID: 42, Email: "agent@example.com", Role: domain.RoleAgent}

	token, err := tm.GenerateToken(p, TokenAccess)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	claims, err := tm.ValidateToken(token, TokenAccess)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	got, err := claims.Principal()
	if err != nil {
		t.Fatalf("Principal failed: %v", err)
	}
	if *got != p {
		t.Fatalf("expected %+v, got %+v", p, *got)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	tm := NewTokenManager("secret", "", 0)
	token, err := tm.GenerateToken(domain.Principal{ID: 1, Role: domain.RoleHolder}, TokenRefresh)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := tm.ValidateToken(token, TokenAccess); !errors.Is(err, ErrWrongTokenType) {
		t.Fatalf("expected wrong token type, got %v", err)
	}
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	p := domain.Principal{ID: 1, Role: domain.RoleAdmin}
	other, _ := NewTokenManager("other-secret", "securelife", time.Minute).GenerateToken(p, TokenAccess)
	if _, err := NewTokenManager("secret", "securelife", time.Minute).ValidateToken(other, TokenAccess); err == nil {
		t.Fatal("expected signature failure")
	}

	foreignIssuer, _ := NewTokenManager("secret", "elsewhere", time.Minute).GenerateToken(p, TokenAccess)
	if _, err := NewTokenManager("secret", "securelife", time.Minute).ValidateToken(foreignIssuer, TokenAccess); err == nil {
		t.Fatal("expected issuer failure")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", "securelife", time.Nanosecond)
	token, _ := tm.GenerateToken(domain.Principal{ID: 1, Role: domain.RoleAdmin}, TokenAccess)
	time.Sleep(1100 * time.Millisecond)
	if _, err := tm.ValidateToken(token, TokenAccess); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestExtractToken(t *testing.T) {
	if tok, err := ExtractToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("got %q, %v", tok, err)
	}
	for _, h := range []string{"", "abc", "Basic abc", "Bearer "} {
		if _, err := ExtractToken(h); err == nil {
			t.Errorf("expected error for %q", h)
		}
	}
}
