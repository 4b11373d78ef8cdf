package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/premium"
	"github.com/khaliloulah1/securelife/internal/repository"
	"github.com/khaliloulah1/securelife/internal/search"
	"github.com/khaliloulah1/securelife/internal/security"
)

// ContractService manages the contracts of one kind. R is the kind's request type.
type ContractService[R kindRequest] struct {
	*core
	kind domain.Kind
	// unique runs kind-specific uniqueness checks inside the write transaction
	unique func(ctx context.Context, store repository.ContractStore, c *domain.Contract) error
}

// NewAutoService creates the motor contract service. Registration plates are unique.
func NewAutoService(deps Dependencies) *ContractService[AutoRequest] {
	return &ContractService[AutoRequest]{
		core: newCore(deps),
		kind: domain.KindAuto,
		unique: func(ctx context.Context, store repository.ContractStore, c *domain.Contract) error {
			taken, err := store.ExistsByRegistrationPlate(ctx, c.Auto.RegistrationPlate, c.ID)
			if err != nil {
				return err
			}
			if taken {
				return &domain.DuplicateResourceError{
					Message: fmt.Sprintf("registration plate %s is already insured", c.Auto.RegistrationPlate),
				}
			}
			return nil
		},
	}
}

// NewHomeService creates the home contract service
func NewHomeService(deps Dependencies) *ContractService[HomeRequest] {
	return &ContractService[HomeRequest]{core: newCore(deps), kind: domain.KindHome}
}

// NewLifeService creates the life contract service
func NewLifeService(deps Dependencies) *ContractService[LifeRequest] {
	return &ContractService[LifeRequest]{core: newCore(deps), kind: domain.KindLife}
}

// Kind returns the contract kind this service manages
func (s *ContractService[R]) Kind() domain.Kind {
	return s.kind
}

// Create validates and stores a new ACTIVE contract, then evicts search and stats
func (s *ContractService[R]) Create(ctx context.Context, principal *domain.Principal, req R) (c *domain.Contract, err error) {
	ctx, finish := s.begin(ctx, string(s.kind), "create")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpCreate, nil); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ownerID, err := s.resolveOwner(ctx, principal, req.common().OwnerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	contract := &domain.Contract{
		Number:    NewContractNumber(now),
		Kind:      s.kind,
		Status:    domain.StatusActive,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	req.applyTo(contract)
	contract.AnnualPremium = premium.For(contract)
	if err := checkPremium(contract); err != nil {
		return nil, err
	}

	err = s.contracts.WithinTx(ctx, func(ctx context.Context, store repository.ContractStore) error {
		if err := store.LockIdentity(ctx, s.kind, contract.Email); err != nil {
			return err
		}
		active, err := store.ExistsActiveByEmail(ctx, s.kind, contract.Email)
		if err != nil {
			return err
		}
		if active {
			return &domain.DuplicateResourceError{
				Message: fmt.Sprintf("an active %s contract already exists for %s", s.kind, contract.Email),
			}
		}
		if s.unique != nil {
			if err := s.unique(ctx, store, contract); err != nil {
				return err
			}
		}
		return store.Create(ctx, contract)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, contract.ID)
	s.logAction("created", contract, principal)
	s.notifier.NotifyCreated(ctx, contract)
	return contract, nil
}

// checkPremium rejects inputs whose product overflows float64
func checkPremium(c *domain.Contract) error {
	if math.IsInf(c.AnnualPremium, 0) || math.IsNaN(c.AnnualPremium) {
		return &domain.ValidationError{Fields: map[string]string{
			"basePremium": "results in an annual premium out of range",
		}}
	}
	return nil
}

// resolveOwner lets administrators assign an existing user; everyone else owns what they create
func (s *ContractService[R]) resolveOwner(ctx context.Context, principal *domain.Principal, requested *int64) (int64, error) {
	if requested == nil || principal.Role != domain.RoleAdmin {
		return principal.ID, nil
	}
	if s.users == nil {
		return 0, fmt.Errorf("failed to resolve owner %d: no user directory", *requested)
	}
	owner, err := s.users.GetByID(ctx, *requested)
	if err != nil {
		return 0, err
	}
	return owner.ID, nil
}

// GetByID returns the contract if the principal may read it
func (s *ContractService[R]) GetByID(ctx context.Context, principal *domain.Principal, id int64) (c *domain.Contract, err error) {
	ctx, finish := s.begin(ctx, string(s.kind), "read")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpRead, nil); err != nil {
		return nil, err
	}
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract.Kind != s.kind {
		return nil, &domain.NotFoundError{Resource: strings.ToLower(string(s.kind)) + " contract", ID: id}
	}
	if err := s.authorize(principal, security.OpRead, contract); err != nil {
		return nil, err
	}
	s.logger.Debug("contract read",
		slog.Int64("contract_id", id),
		slog.Int64("principal_id", principal.ID),
	)
	return contract, nil
}

// Update replaces the common and kind fields and recomputes the premium.
// Number, status, owner and creation time are kept.
func (s *ContractService[R]) Update(ctx context.Context, principal *domain.Principal, id int64, req R) (c *domain.Contract, err error) {
	ctx, finish := s.begin(ctx, string(s.kind), "update")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpUpdate, nil); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var updated *domain.Contract
	err = s.contracts.WithinTx(ctx, func(ctx context.Context, store repository.ContractStore) error {
		existing, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.Kind != s.kind {
			return &domain.NotFoundError{Resource: strings.ToLower(string(s.kind)) + " contract", ID: id}
		}
		req.applyTo(existing)
		existing.AnnualPremium = premium.For(existing)
		if err := checkPremium(existing); err != nil {
			return err
		}
		existing.UpdatedAt = s.now().UTC()

		if s.unique != nil {
			if err := s.unique(ctx, store, existing); err != nil {
				return err
			}
		}
		if err := store.Update(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	s.logAction("updated", updated, principal)
	s.notifier.NotifyUpdated(ctx, updated)
	return updated, nil
}

// Delete removes a contract of this kind. Administrators only.
func (s *ContractService[R]) Delete(ctx context.Context, principal *domain.Principal, id int64) (err error) {
	ctx, finish := s.begin(ctx, string(s.kind), "delete")
	defer func() { finish(err) }()
	return s.deleteContract(ctx, principal, id, s.kind)
}

// List pages through contracts of this kind. Holders only see their own. Not cached.
func (s *ContractService[R]) List(ctx context.Context, principal *domain.Principal, page domain.Page) (p *domain.ContractPage, err error) {
	ctx, finish := s.begin(ctx, string(s.kind), "list")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpList, nil); err != nil {
		return nil, err
	}
	page = page.Normalize()
	kind := s.kind
	ownerID, scoped := s.policy.Scope(principal)
	spec := search.Scoped(search.AllOf(search.KindEquals(&kind)), ownerID, scoped)

	items, total, err := s.contracts.Find(ctx, spec, page)
	if err != nil {
		return nil, err
	}
	s.logger.Info("contracts listed",
		slog.String("kind", string(s.kind)),
		slog.Int64("principal_id", principal.ID),
		slog.String("role", string(principal.Role)),
		slog.Int("count", len(items)),
	)
	return &domain.ContractPage{Items: items, Page: page.Number, Size: page.Size, Total: total}, nil
}
