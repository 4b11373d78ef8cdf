package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/khaliloulah1/securelife/internal/domain"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	u := &domain.User{Email: "Agent@Example.com", Role: domain.RoleAgent}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if u.ID == 0 || u.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp, got %+v", u)
	}

	if err := repo.Create(ctx, &domain.User{Email: "agent@example.com"}); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "agent@EXAMPLE.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetByEmail: got %+v, %v", got, err)
	}

	got.FullName = "Moussa Sow"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	again, _ := repo.GetByID(ctx, u.ID)
	if again.FullName != "Moussa Sow" {
		t.Fatalf("update not applied: %+v", again)
	}

	if _, err := repo.GetByID(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
