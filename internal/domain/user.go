package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Role represents an actor role
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleAgent  Role = "AGENT"
	RoleHolder Role = "HOLDER"
)

// ParseRole accepts CLIENT as an alias of HOLDER
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ADMIN":
		return RoleAdmin, nil
	case "AGENT":
		return RoleAgent, nil
	case "HOLDER", "CLIENT":
		return RoleHolder, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Principal is the authenticated actor performing an operation
type Principal struct {
	ID    int64
	Email string
	Role  Role
}

// User represents a system user
type User struct {
	ID           int64
	Email        string // Unique email address
	FullName     string
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         Role
	CreatedAt    time.Time
}

// Principal returns the identity carried by tokens for this user
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
}
