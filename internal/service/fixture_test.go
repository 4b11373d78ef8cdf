package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/repository"
	"github.com/khaliloulah1/securelife/pkg/cache"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) record(event string, c *domain.Contract) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+c.Number)
}

func (n *recordingNotifier) NotifyCreated(_ context.Context, c *domain.Contract) { n.record("created", c) }
func (n *recordingNotifier) NotifyUpdated(_ context.Context, c *domain.Contract) { n.record("updated", c) }
func (n *recordingNotifier) NotifyStatusChanged(_ context.Context, c *domain.Contract) {
	n.record("status", c)
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// flakyStore fails evictions on demand
type flakyStore struct {
	*cache.MemoryStore
	failEvict bool
}

var errEvict = errors.New("cache unavailable")

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.failEvict {
		return errEvict
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *flakyStore) DeletePrefix(ctx context.Context, prefix string) error {
	if s.failEvict {
		return errEvict
	}
	return s.MemoryStore.DeletePrefix(ctx, prefix)
}

type fixture struct {
	contracts *repository.MemoryContractRepository
	users     *repository.MemoryUserRepository
	store     *flakyStore
	layer     *cache.Layer
	notifier  *recordingNotifier

	auto   *ContractService[AutoRequest]
	home   *ContractService[HomeRequest]
	life   *ContractService[LifeRequest]
	search *SearchService

	admin, agent, holder, other *domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		contracts: repository.NewMemoryContractRepository(),
		users:     repository.NewMemoryUserRepository(),
		store:     &flakyStore{MemoryStore: cache.NewMemoryStore()},
		notifier:  &recordingNotifier{},
	}
	f.layer = cache.NewLayer(f.store, nil, nil)

	ctx := context.Background()
	principal := func(email string, role domain.Role) *domain.Principal {
		u := &domain.User{Email: email, FullName: email, PasswordHash: "x", Role: role}
		if err := f.users.Create(ctx, u); err != nil {
			t.Fatalf("failed to create user %s: %v", email, err)
		}
		p := u.Principal()
		return &p
	}
	f.admin = principal("admin@securelife.local", domain.RoleAdmin)
	f.agent = principal("agent@securelife.local", domain.RoleAgent)
	f.holder = principal("holder@example.com", domain.RoleHolder)
	f.other = principal("other@example.com", domain.RoleHolder)

	clock := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	deps := Dependencies{
		Contracts: f.contracts,
		Users:     f.users,
		Documents: f.contracts,
		Cache:     f.layer,
		Notifier:  f.notifier,
		Now:       func() time.Time { return clock },
	}
	f.auto = NewAutoService(deps)
	f.home = NewHomeService(deps)
	f.life = NewLifeService(deps)
	f.search = NewSearchService(deps)
	return f
}

func owner(p *domain.Principal) *int64 {
	id := p.ID
	return &id
}

func autoRequest(email, plate string) AutoRequest {
	return AutoRequest{
		ContractFields:    ContractFields{FullName: "Jean Dupont", Email: email, BasePremium: 1000},
		RegistrationPlate: plate,
		FiscalPower:       6,
		BonusMalus:        120,
	}
}

func homeRequest(email, zone string) HomeRequest {
	return HomeRequest{
		ContractFields: ContractFields{FullName: "Marie Curie", Email: email, BasePremium: 200},
		Address:        "12 rue des Lilas",
		SurfaceArea:    50,
		RiskZone:       zone,
	}
}

func lifeRequest(email string, age int) LifeRequest {
	return LifeRequest{
		ContractFields:    ContractFields{FullName: "Paul Martin", Email: email, BasePremium: 100},
		InsuredAge:        age,
		GuaranteedCapital: 50000,
		Beneficiary:       "Anne Martin",
	}
}

// cached reports whether the by-id region holds id
func (f *fixture) cached(t *testing.T, id int64) bool {
	t.Helper()
	var c domain.Contract
	ok, err := f.layer.Get(context.Background(), cache.RegionByID, idKey(id), &c)
	if err != nil {
		t.Fatalf("cache read failed: %v", err)
	}
	return ok
}
