package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// MemoryUserRepository implements domain.UserRepository in process
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[int64]*domain.User
	byEmail map[string]int64
	nextID  int64
}

// NewMemoryUserRepository creates an empty user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[int64]*domain.User),
		byEmail: make(map[string]int64),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return &domain.DuplicateResourceError{Message: "email already registered"}
	}
	r.nextID++
	user.ID = r.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	out := *u
	return &out, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "user", ID: email}
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "user", ID: user.ID}
	}
	newKey := emailKey(user.Email)
	if owner, taken := r.byEmail[newKey]; taken && owner != user.ID {
		return &domain.DuplicateResourceError{Message: "email already registered"}
	}
	delete(r.byEmail, emailKey(current.Email))
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[newKey] = user.ID
	return nil
}
