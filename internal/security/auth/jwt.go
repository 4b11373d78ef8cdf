package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// TokenType distinguishes short-lived access tokens from refresh tokens
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var ErrWrongTokenType = errors.New("wrong token type")

type Claims struct {
	UserID int64     `json:"uid"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Principal returns the identity carried by the token
func (c *Claims) Principal() (*domain.Principal, error) {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{ID: c.UserID, Email: c.Email, Role: role}, nil
}

type TokenManager struct {
	secret     string
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret, issuer string, accessTTL time.Duration) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "securelife"
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &TokenManager{secret: secret, issuer: issuer, accessTTL: accessTTL, refreshTTL: 7 * 24 * time.Hour}
}

// AccessTTL is the lifetime of access tokens
func (tm *TokenManager) AccessTTL() time.Duration {
	return tm.accessTTL
}

func (tm *TokenManager) GenerateToken(p domain.Principal, typ TokenType) (string, error) {
	if p.ID == 0 || p.Role == "" {
		return "", fmt.Errorf("user id and role required")
	}
	ttl := tm.accessTTL
	if typ == TokenRefresh {
		ttl = tm.refreshTTL
	}
	now := time.Now()
	claims := Claims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   string(p.Role),
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

func (tm *TokenManager) ValidateToken(tokenString string, want TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithIssuer(tm.issuer))
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Type != want {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}
