package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
	"github.com/khaliloulah1/securelife/internal/observability/metrics"
)

// Async dispatches notifications in the background. Failures are logged
// and counted; they never reach the caller.
type Async struct {
	sender  Sender
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps sender. A timeout <= 0 defaults to 30 seconds.
func NewAsync(sender Sender, timeout time.Duration, logger *slog.Logger) *Async {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{sender: sender, timeout: timeout, logger: logger}
}

func (a *Async) NotifyCreated(ctx context.Context, c *domain.Contract) {
	a.dispatch(ctx, EventCreated, c)
}

func (a *Async) NotifyUpdated(ctx context.Context, c *domain.Contract) {
	a.dispatch(ctx, EventUpdated, c)
}

func (a *Async) NotifyStatusChanged(ctx context.Context, c *domain.Contract) {
	a.dispatch(ctx, EventStatusChanged, c)
}

// Wait blocks until every dispatched notification has finished
func (a *Async) Wait() {
	a.wg.Wait()
}

func (a *Async) dispatch(ctx context.Context, event Event, c *domain.Contract) {
	snapshot := c.Clone()
	// The notification outlives the request that triggered it.
	base := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(base, a.timeout)
		defer cancel()

		if err := a.send(ctx, event, snapshot); err != nil {
			metrics.ObserveNotification(string(event), "failure")
			a.logger.Warn("notification failed",
				slog.String("event", string(event)),
				slog.Int64("contract_id", snapshot.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		metrics.ObserveNotification(string(event), "success")
	}()
}

func (a *Async) send(ctx context.Context, event Event, c *domain.Contract) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification panicked: %v", r)
		}
	}()
	return a.sender.Send(ctx, event, c)
}
