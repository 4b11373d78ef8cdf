package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/observability/metrics"
	"github.com/khaliloulah1/securelife/internal/observability/tracing"
	"github.com/khaliloulah1/securelife/internal/repository"
	"github.com/khaliloulah1/securelife/internal/security"
	"github.com/khaliloulah1/securelife/pkg/cache"
)

// core holds the collaborators and the cache discipline shared by the
// per-kind services and the cross-kind service
type core struct {
	contracts repository.ContractRepository
	users     domain.UserRepository
	documents DocumentCounter
	cache     *cache.Layer
	policy    *security.AccessPolicy
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
	statuses  map[domain.Status]bool
	ordered   []domain.Status
	tracer    trace.Tracer
}

func newCore(deps Dependencies) *core {
	c := &core{
		contracts: deps.Contracts,
		users:     deps.Users,
		documents: deps.Documents,
		cache:     deps.Cache,
		policy:    deps.Policy,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       deps.Now,
		tracer:    tracing.Tracer(),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.policy == nil {
		c.policy = security.NewAccessPolicy(c.logger)
	}
	if c.notifier == nil {
		c.notifier = noopNotifier{}
	}
	if c.cache == nil {
		c.cache = cache.NewLayer(cache.NewMemoryStore(), nil, c.logger)
	}
	if c.now == nil {
		c.now = time.Now
	}
	statuses := deps.Statuses
	if len(statuses) == 0 {
		statuses = domain.DefaultStatuses
	}
	c.statuses = make(map[domain.Status]bool, len(statuses)+1)
	for _, s := range append([]domain.Status{domain.StatusActive}, statuses...) {
		if !c.statuses[s] {
			c.statuses[s] = true
			c.ordered = append(c.ordered, s)
		}
	}
	return c
}

func idKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (c *core) authorize(principal *domain.Principal, op security.Operation, target *domain.Contract) error {
	err := c.policy.Authorize(principal, op, target)
	if err != nil {
		role := "anonymous"
		if principal != nil {
			role = string(principal.Role)
		}
		metrics.ObserveAccessDenied(string(op), role)
	}
	return err
}

// load reads a contract through the by-id region
func (c *core) load(ctx context.Context, id int64) (*domain.Contract, error) {
	contract, err := cache.GetOrLoad(ctx, c.cache, cache.RegionByID, idKey(id), func(ctx context.Context) (*domain.Contract, error) {
		return c.contracts.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	// Coalesced callers share the loaded value.
	return contract.Clone(), nil
}

// invalidate evicts the by-id entry for id and every search and stats entry.
// It runs after commit; failures leave a stale cache, never a wrong store.
func (c *core) invalidate(ctx context.Context, id int64) {
	ctx = context.WithoutCancel(ctx)
	if id != 0 {
		if err := c.cache.Evict(ctx, cache.RegionByID, idKey(id)); err != nil {
			c.evictionFailed(cache.RegionByID, id, err)
		}
	}
	for _, region := range []cache.Region{cache.RegionSearch, cache.RegionStats} {
		if err := c.cache.EvictAll(ctx, region); err != nil {
			c.evictionFailed(region, id, err)
		}
	}
}

func (c *core) evictionFailed(region cache.Region, id int64, err error) {
	metrics.ObserveEvictionFailure(string(region))
	c.logger.Error("cache eviction failed after commit",
		slog.String("region", string(region)),
		slog.Int64("contract_id", id),
		slog.String("error", err.Error()),
	)
}

// begin starts a span and returns a finish func recording metrics and the span outcome
func (c *core) begin(ctx context.Context, kind, op string) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "contract."+op, trace.WithAttributes(
		attribute.String("contract.kind", kind),
		attribute.String("contract.operation", op),
	))
	return ctx, func(err error) {
		metrics.ObserveContractOperation(kind, op, resultLabel(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAccessDenied):
		return "denied"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// logAction records a completed operation with the acting principal
func (c *core) logAction(action string, contract *domain.Contract, principal *domain.Principal) {
	c.logger.Info("contract "+action,
		slog.Int64("contract_id", contract.ID),
		slog.String("kind", string(contract.Kind)),
		slog.Int64("principal_id", principal.ID),
		slog.String("role", string(principal.Role)),
	)
}

// deleteContract removes a contract. kind restricts the target when non-empty.
func (c *core) deleteContract(ctx context.Context, principal *domain.Principal, id int64, kind domain.Kind) error {
	if err := c.authorize(principal, security.OpDelete, nil); err != nil {
		return err
	}

	var deleted *domain.Contract
	err := c.contracts.WithinTx(ctx, func(ctx context.Context, store repository.ContractStore) error {
		existing, err := store.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if kind != "" && existing.Kind != kind {
			return &domain.NotFoundError{Resource: "contract", ID: id}
		}
		if c.documents != nil {
			n, err := c.documents.CountByContract(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				c.logger.Info("deleting contract with documents",
					slog.Int64("contract_id", id),
					slog.Int64("documents", n),
				)
			}
		}
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return err
	}

	c.invalidate(ctx, id)
	c.logAction("deleted", deleted, principal)
	return nil
}
