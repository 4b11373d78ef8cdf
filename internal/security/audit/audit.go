package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/khaliloulah1/securelife/internal/domain"
)

type requestIDKey struct{}

// WithRequestID stores the request id read back by every audit record
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger writes audit records for contract actions and access decisions
type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit")), now: time.Now}
}

func (al *Logger) LogAction(ctx context.Context, principal *domain.Principal, action, resource, resourceID, status, details string) {
	var userID int64
	role := "anonymous"
	if principal != nil {
		userID = principal.ID
		role = string(principal.Role)
	}

	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.Int64("user_id", userID),
		slog.String("role", role),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now()),
	)
}

func (al *Logger) LogContractAction(ctx context.Context, principal *domain.Principal, action, contractID, status string) {
	al.LogAction(ctx, principal, action, "contract", contractID, status, "")
}

func (al *Logger) LogLogin(ctx context.Context, email, status string) {
	al.LogAction(ctx, nil, "login", "user", email, status, "")
}

func (al *Logger) LogDenied(ctx context.Context, principal *domain.Principal, reason string) {
	al.LogAction(ctx, principal, "access_denied", "api", "", "denied", reason)
}
