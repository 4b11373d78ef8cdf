package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/premium"
	"github.com/khaliloulah1/securelife/internal/repository"
	"github.com/khaliloulah1/securelife/internal/search"
	"github.com/khaliloulah1/securelife/internal/security"
	"github.com/khaliloulah1/securelife/pkg/cache"
)

const allKinds = "ALL"

// SearchService works across contract kinds: search, status changes,
// deletion, statistics and reference data
type SearchService struct {
	*core
}

// NewSearchService creates the cross-kind service
func NewSearchService(deps Dependencies) *SearchService {
	return &SearchService{core: newCore(deps)}
}

// Search returns one page of contracts matching the filter. Holders are
// always restricted to their own contracts. Results are cached per
// filter, page and scope.
func (s *SearchService) Search(ctx context.Context, principal *domain.Principal, filter domain.Filter, page domain.Page) (p *domain.ContractPage, err error) {
	ctx, finish := s.begin(ctx, allKinds, "search")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpSearch, nil); err != nil {
		return nil, err
	}
	if err := search.ValidateFilter(filter); err != nil {
		return nil, err
	}
	page = page.Normalize()
	ownerID, scoped := s.policy.Scope(principal)
	spec := search.Scoped(search.FromFilter(filter), ownerID, scoped)
	key := search.Fingerprint(filter, page, ownerID, scoped)

	result, err := cache.GetOrLoad(ctx, s.cache, cache.RegionSearch, key, func(ctx context.Context) (*domain.ContractPage, error) {
		items, total, err := s.contracts.Find(ctx, spec, page)
		if err != nil {
			return nil, err
		}
		return &domain.ContractPage{Items: items, Page: page.Number, Size: page.Size, Total: total}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("contracts searched",
		slog.Any("predicates", spec.Names()),
		slog.Int64("principal_id", principal.ID),
		slog.Int64("total", result.Total),
	)
	return clonePage(result), nil
}

// List pages through every contract visible to the principal
func (s *SearchService) List(ctx context.Context, principal *domain.Principal, page domain.Page) (*domain.ContractPage, error) {
	return s.Search(ctx, principal, domain.Filter{}, page)
}

// GetByID returns a contract of any kind if the principal may read it
func (s *SearchService) GetByID(ctx context.Context, principal *domain.Principal, id int64) (c *domain.Contract, err error) {
	ctx, finish := s.begin(ctx, allKinds, "read")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpRead, nil); err != nil {
		return nil, err
	}
	contract, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(principal, security.OpRead, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// ParseStatus validates a status against the configured set
func (s *SearchService) ParseStatus(raw string) (domain.Status, error) {
	status := domain.Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.statuses[status] {
		return "", domain.NewValidationError("status", fmt.Sprintf("unknown status %q", raw))
	}
	return status, nil
}

// Statuses lists the configured statuses, ACTIVE first
func (s *SearchService) Statuses() []domain.Status {
	return append([]domain.Status(nil), s.ordered...)
}

// UpdateStatus changes only the status of a contract
func (s *SearchService) UpdateStatus(ctx context.Context, principal *domain.Principal, id int64, req StatusRequest) (c *domain.Contract, err error) {
	ctx, finish := s.begin(ctx, allKinds, "update_status")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpUpdateStatus, nil); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	status, err := s.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var updated *domain.Contract
	err = s.contracts.WithinTx(ctx, func(ctx context.Context, store repository.ContractStore) error {
		existing, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		existing.Status = status
		existing.UpdatedAt = s.now().UTC()
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
	s.logAction("status changed to "+string(status), updated, principal)
	s.notifier.NotifyStatusChanged(ctx, updated)
	return updated, nil
}

// Delete removes a contract of any kind. Administrators only.
func (s *SearchService) Delete(ctx context.Context, principal *domain.Principal, id int64) (err error) {
	ctx, finish := s.begin(ctx, allKinds, "delete")
	defer func() { finish(err) }()
	return s.deleteContract(ctx, principal, id, "")
}

// Stats aggregates counts per status and the total annual premium.
// Administrators only; cached as a single document.
func (s *SearchService) Stats(ctx context.Context, principal *domain.Principal) (st *domain.Stats, err error) {
	ctx, finish := s.begin(ctx, allKinds, "stats")
	defer func() { finish(err) }()

	if err := s.authorize(principal, security.OpViewStats, nil); err != nil {
		return nil, err
	}
	return cache.GetOrLoad(ctx, s.cache, cache.RegionStats, cache.StatsKey, func(ctx context.Context) (*domain.Stats, error) {
		return s.contracts.Stats(ctx)
	})
}

// Reference is the static data clients need to build contract forms
type Reference struct {
	Kinds     []domain.Kind   `json:"kinds"`
	Statuses  []domain.Status `json:"statuses"`
	RiskZones []RiskZone      `json:"riskZones"`
}

// RiskZone is a home risk tier and its premium factor
type RiskZone struct {
	Code   string  `json:"code"`
	Factor float64 `json:"factor"`
}

const referenceKey = "all"

// Reference returns kinds, statuses and risk zones from the reference-data region
func (s *SearchService) Reference(ctx context.Context, principal *domain.Principal) (*Reference, error) {
	if principal == nil {
		return nil, &domain.AccessDeniedError{Reason: "no authenticated principal"}
	}
	return cache.GetOrLoad(ctx, s.cache, cache.RegionReference, referenceKey, func(context.Context) (*Reference, error) {
		zones := make([]RiskZone, 0, 3)
		for _, z := range []string{premium.ZoneHigh, premium.ZoneMedium, premium.ZoneLow} {
			zones = append(zones, RiskZone{Code: z, Factor: premium.ZoneFactor(z)})
		}
		return &Reference{Kinds: domain.Kinds, Statuses: s.Statuses(), RiskZones: zones}, nil
	})
}

func clonePage(p *domain.ContractPage) *domain.ContractPage {
	out := *p
	out.Items = make([]*domain.Contract, len(p.Items))
	for i, c := range p.Items {
		out.Items[i] = c.Clone()
	}
	return &out
}
