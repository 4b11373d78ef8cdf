package notification

import (
	"context"
	"log/slog"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// Event names a contract lifecycle notification
type Event string

const (
	EventCreated       Event = "created"
	EventUpdated       Event = "updated"
	EventStatusChanged Event = "status_changed"
)

// Sender delivers one notification synchronously
type Sender interface {
	Send(ctx context.Context, event Event, c *domain.Contract) error
}

// LogSender records notifications in the log instead of delivering them
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, event Event, c *domain.Contract) error {
	s.logger.Info("contract notification",
		slog.String("event", string(event)),
		slog.Int64("contract_id", c.ID),
		slog.String("contract_number", c.Number),
		slog.String("kind", string(c.Kind)),
		slog.String("status", string(c.Status)),
		slog.String("to", c.Email),
	)
	return nil
}
