package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/search"
)

func autoContract(number, email, plate string, premium float64) *domain.Contract {
	now := time.Now().UTC()
	return &domain.Contract{
		Number:        number,
		Kind:          domain.KindAuto,
		FullName:      "Awa Diallo",
		Email:         email,
		BasePremium:   100,
		AnnualPremium: premium,
		Status:        domain.StatusActive,
		OwnerID:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
		Auto:          &domain.AutoDetails{RegistrationPlate: plate, FiscalPower: 5, BonusMalus: 100},
	}
}

func TestMemoryCreateAssignsIDsAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()

	c := autoContract("N-1", "a@example.com", "AA-1", 500)
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.ID != 1 {
		t.Fatalf("expected id 1, got %d", c.ID)
	}

	c.FullName = "mutated"
	got, err := repo.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.FullName != "Awa Diallo" {
		t.Fatalf("stored contract was aliased: %q", got.FullName)
	}
}

func TestMemoryGetByIDNotFound(t *testing.T) {
	repo := NewMemoryContractRepository()
	_, err := repo.GetByID(context.Background(), 42)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryPlateUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()
	if err := repo.Create(ctx, autoContract("N-1", "a@example.com", "AA-1", 500)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	err := repo.Create(ctx, autoContract("N-2", "b@example.com", "AA-1", 500))
	if !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate plate, got %v", err)
	}

	taken, _ := repo.ExistsByRegistrationPlate(ctx, "AA-1", 1)
	if taken {
		t.Fatal("plate should not conflict with its own contract")
	}
	taken, _ = repo.ExistsByRegistrationPlate(ctx, "AA-1", 0)
	if !taken {
		t.Fatal("expected plate to be taken")
	}
}

func TestMemoryFailedTxLeavesNoState(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(ctx context.Context, s ContractStore) error {
		if err := s.Create(ctx, autoContract("N-1", "a@example.com", "AA-1", 500)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	_, total, _ := repo.Find(ctx, search.Specification{}, domain.Page{})
	if total != 0 {
		t.Fatalf("expected rollback, found %d contracts", total)
	}
}

func TestMemoryTxSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()

	err := repo.WithinTx(ctx, func(ctx context.Context, s ContractStore) error {
		if err := s.Create(ctx, autoContract("N-1", "a@example.com", "AA-1", 500)); err != nil {
			return err
		}
		exists, err := s.ExistsActiveByEmail(ctx, domain.KindAuto, "A@EXAMPLE.COM")
		if err != nil {
			return err
		}
		if !exists {
			t.Fatal("expected the transaction to see its own insert")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}
}

func TestMemoryFindPagesByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()
	for i := 0; i < 5; i++ {
		c := autoContract("N-"+string(rune('a'+i)), "a@example.com", "P-"+string(rune('a'+i)), float64(100*(i+1)))
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	items, total, err := repo.Find(ctx, search.Specification{}, domain.Page{Number: 1, Size: 2})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if total != 5 || len(items) != 2 || items[0].ID != 3 || items[1].ID != 4 {
		t.Fatalf("unexpected page: total=%d items=%v", total, items)
	}

	lo := 250.0
	items, total, _ = repo.Find(ctx, search.AllOf(search.PremiumBetween(&lo, nil)), domain.Page{})
	if total != 3 || items[0].ID != 3 {
		t.Fatalf("expected contracts 3..5, got total=%d", total)
	}

	items, _, _ = repo.Find(ctx, search.Specification{}, domain.Page{Number: 10, Size: 2})
	if len(items) != 0 {
		t.Fatalf("expected empty page past the end, got %d", len(items))
	}
	items, total, err = repo.Find(ctx, search.Specification{}, domain.Page{Number: math.MaxInt / 50, Size: 100})
	if err != nil || len(items) != 0 || total == 0 {
		t.Fatalf("expected empty page for an overflowing offset, got %d items of %d err=%v", len(items), total, err)
	}
}

func TestMemoryDeleteCascadesDocuments(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()
	c := autoContract("N-1", "a@example.com", "AA-1", 500)
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Attach(ctx, &domain.Document{ContractID: c.ID, FileName: "carte-grise.pdf"}); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if n, _ := repo.CountByContract(ctx, c.ID); n != 1 {
		t.Fatalf("expected 1 document, got %d", n)
	}

	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n, _ := repo.CountByContract(ctx, c.ID); n != 0 {
		t.Fatalf("expected documents to cascade, got %d", n)
	}
	if err := repo.Attach(ctx, &domain.Document{ContractID: c.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for deleted contract, got %v", err)
	}
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryContractRepository()
	a := autoContract("N-1", "a@example.com", "AA-1", 500)
	b := autoContract("N-2", "b@example.com", "AA-2", 250)
	b.Status = domain.StatusCancelled
	for _, c := range []*domain.Contract{a, b} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.TotalAnnualPremium != 750 ||
		stats.CountByStatus[domain.StatusActive] != 1 || stats.CountByStatus[domain.StatusCancelled] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
