package security

import (
	"log/slog"

	"github.com/khaliloulah1/securelife/internal/domain"
)

// Operation identifies what a principal is attempting
type Operation string

const (
	OpCreate       Operation = "create_contract"
	OpUpdate       Operation = "update_contract"
	OpDelete       Operation = "delete_contract"
	OpUpdateStatus Operation = "update_status"
	OpViewStats    Operation = "view_stats"
	OpRead         Operation = "read_contract"
	OpList         Operation = "list_contracts"
	OpSearch       Operation = "search_contracts"
)

// RolePermissions maps roles to the operations they may attempt.
// Reads are further restricted by ownership for holders.
var RolePermissions = map[domain.Role][]Operation{
	domain.RoleAdmin: {
		OpCreate,
		OpUpdate,
		OpDelete,
		OpUpdateStatus,
		OpViewStats,
		OpRead,
		OpList,
		OpSearch,
	},
	domain.RoleAgent: {
		OpCreate,
		OpUpdate,
		OpUpdateStatus,
		OpRead,
		OpList,
		OpSearch,
	},
	domain.RoleHolder: {
		OpRead,
		OpList,
		OpSearch,
	},
}

// Decision is the outcome of a policy evaluation
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// AccessPolicy makes role and ownership based authorization decisions.
// It holds no per-request state and is shared by every contract service.
type AccessPolicy struct {
	logger *slog.Logger
}

// NewAccessPolicy creates a new access policy
func NewAccessPolicy(logger *slog.Logger) *AccessPolicy {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessPolicy{
		logger: logger,
	}
}

// HasPermission checks if a role may attempt an operation at all
func (p *AccessPolicy) HasPermission(role domain.Role, op Operation) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, o := range permissions {
		if o == op {
			return true
		}
	}
	return false
}

// Decide evaluates op for the principal. target is only consulted for single-contract reads.
func (p *AccessPolicy) Decide(principal *domain.Principal, op Operation, target *domain.Contract) Decision {
	if principal == nil {
		return deny("no authenticated principal")
	}

	switch op {
	case OpCreate, OpUpdate:
		if principal.Role == domain.RoleHolder {
			return deny("holders cannot create or modify contracts")
		}
	case OpDelete, OpViewStats:
		if principal.Role != domain.RoleAdmin {
			return deny("only administrators may " + describe(op))
		}
	case OpUpdateStatus:
		if principal.Role == domain.RoleHolder {
			return deny("holders cannot change a contract status")
		}
	case OpRead:
		if principal.Role == domain.RoleHolder && target != nil {
			return p.decideOwnership(principal, target)
		}
	case OpList, OpSearch:
	default:
		return deny("unknown operation " + string(op))
	}

	if !p.HasPermission(principal.Role, op) {
		return deny(string(principal.Role) + " role cannot " + describe(op))
	}
	return allow()
}

// Authorize is Decide returning a typed error on denial
func (p *AccessPolicy) Authorize(principal *domain.Principal, op Operation, target *domain.Contract) error {
	d := p.Decide(principal, op, target)
	if d.Allowed {
		return nil
	}
	attrs := []any{
		slog.String("operation", string(op)),
		slog.String("reason", d.Reason),
	}
	if principal != nil {
		attrs = append(attrs, slog.Int64("principal_id", principal.ID), slog.String("role", string(principal.Role)))
	}
	if target != nil {
		attrs = append(attrs, slog.Int64("contract_id", target.ID))
	}
	p.logger.Warn("permission denied", attrs...)
	return &domain.AccessDeniedError{Reason: d.Reason}
}

func describe(op Operation) string {
	switch op {
	case OpDelete:
		return "delete contracts"
	case OpViewStats:
		return "view statistics"
	case OpUpdateStatus:
		return "change contract status"
	}
	return string(op)
}
