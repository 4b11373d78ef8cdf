package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/repository"
	"github.com/khaliloulah1/securelife/internal/security"
	"github.com/khaliloulah1/securelife/pkg/cache"
)

// Notifier receives fire-and-forget contract lifecycle events
type Notifier interface {
	NotifyCreated(ctx context.Context, c *domain.Contract)
	NotifyUpdated(ctx context.Context, c *domain.Contract)
	NotifyStatusChanged(ctx context.Context, c *domain.Contract)
}

// DocumentCounter reports how many documents reference a contract
type DocumentCounter interface {
	CountByContract(ctx context.Context, contractID int64) (int64, error)
}

// Dependencies are shared by every contract service
type Dependencies struct {
	Contracts repository.ContractRepository
	Users     domain.UserRepository
	Documents DocumentCounter
	Cache     *cache.Layer
	Policy    *security.AccessPolicy
	Notifier  Notifier
	Logger    *slog.Logger
	// Statuses is the configured status set; ACTIVE is always included
	Statuses []domain.Status
	Now      func() time.Time
}

type noopNotifier struct{}

func (noopNotifier) NotifyCreated(context.Context, *domain.Contract)       {}
func (noopNotifier) NotifyUpdated(context.Context, *domain.Contract)       {}
func (noopNotifier) NotifyStatusChanged(context.Context, *domain.Contract) {}
